package server

import (
	"mime/multipart"
	"strconv"
	"strings"

	"claimpro/internal/models"
	"claimpro/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// attachmentFormField is the multipart part carrying the claim document.
const attachmentFormField = "ImageFile"

// claimForm holds the fields shared by the submit and edit forms.
type claimForm struct {
	LecturerID   string
	HoursWorked  decimal.Decimal
	HourlyRate   decimal.Decimal
	TotalAmount  decimal.Decimal
	DocumentType string
	Notes        string
	Attachment   *service.AttachmentUpload
	file         multipart.File
}

func (f *claimForm) close() {
	if f.file != nil {
		_ = f.file.Close()
	}
}

// parseClaimForm reads the claim fields and the optional document part.
// The returned form must be closed once the service call is done.
func parseClaimForm(c *fiber.Ctx) (*claimForm, error) {
	form := &claimForm{
		LecturerID:   strings.TrimSpace(c.FormValue("LecturerID")),
		DocumentType: strings.TrimSpace(c.FormValue("DocumentType")),
		Notes:        c.FormValue("Notes"),
	}

	var err error
	if form.HoursWorked, err = parseDecimalField(c, "HoursWorked"); err != nil {
		return nil, err
	}
	if form.HourlyRate, err = parseDecimalField(c, "HourlyRate"); err != nil {
		return nil, err
	}
	if form.TotalAmount, err = parseDecimalField(c, "TotalAmount"); err != nil {
		return nil, err
	}

	header, err := c.FormFile(attachmentFormField)
	if err != nil || header == nil || header.Filename == "" || header.Size == 0 {
		// no document supplied, or an empty part
		return form, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	form.file = file
	form.Attachment = &service.AttachmentUpload{
		FileName: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
	return form, nil
}

// ListOwnClaims handles GET /Claims
// @Summary List my claims
// @Description Claims submitted by the caller, newest first
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Claim
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /Claims [get]
func (s *Server) ListOwnClaims(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return nil
	}
	claims, err := s.claimService.ListOwn(c.UserContext(), caller.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claims)
}

// ListPendingClaims handles GET /Claims/PendingClaims
// @Summary List pending claims
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Claim
// @Failure 403 {object} models.ErrorResponse
// @Router /Claims/PendingClaims [get]
func (s *Server) ListPendingClaims(c *fiber.Ctx) error {
	claims, err := s.claimService.ListPending(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claims)
}

// ListClaimHistory handles GET /Claims/ClaimHistory
// @Summary List reviewed claims
// @Description Approved and rejected claims, newest first
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Claim
// @Failure 403 {object} models.ErrorResponse
// @Router /Claims/ClaimHistory [get]
func (s *Server) ListClaimHistory(c *fiber.Ctx) error {
	claims, err := s.claimService.ListHistory(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claims)
}

// GetCreateClaimForm handles GET /Claims/Create
// @Summary Attachment policy for new claims
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Success 200 {object} validation.AttachmentPolicy
// @Router /Claims/Create [get]
func (s *Server) GetCreateClaimForm(c *fiber.Ctx) error {
	return c.JSON(s.claimService.AttachmentPolicy())
}

// SubmitClaim handles POST /Claims/Create
// @Summary Submit a claim
// @Tags claims
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param LecturerID formData string false "Lecturer reference"
// @Param HoursWorked formData number false "Hours worked"
// @Param HourlyRate formData number false "Hourly rate"
// @Param TotalAmount formData number false "Total amount"
// @Param DocumentType formData string false "Document type"
// @Param Notes formData string false "Notes"
// @Param ImageFile formData file false "Supporting document"
// @Success 201 {object} models.Claim
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /Claims/Create [post]
func (s *Server) SubmitClaim(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return nil
	}
	form, err := parseClaimForm(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	defer form.close()

	claim, err := s.claimService.Submit(c.UserContext(), service.SubmitClaimInput{
		LecturerID:   form.LecturerID,
		HoursWorked:  form.HoursWorked,
		HourlyRate:   form.HourlyRate,
		TotalAmount:  form.TotalAmount,
		DocumentType: form.DocumentType,
		Notes:        form.Notes,
		Attachment:   form.Attachment,
	}, caller.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(claim)
}

// GetClaimDetails handles GET /Claims/Details/:id, /Claims/Edit/:id and /Claims/Delete/:id
// @Summary Get a claim
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} models.Claim
// @Failure 404 {object} models.ErrorResponse
// @Router /Claims/Details/{id} [get]
func (s *Server) GetClaimDetails(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	claim, err := s.claimService.GetDetails(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claim)
}

// EditClaim handles POST /Claims/Edit/:id
// @Summary Edit a claim
// @Description Replaces the editable fields. Version guards against concurrent edits.
// @Tags claims
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param Version formData int false "Version the edit was based on"
// @Param HoursWorked formData number false "Hours worked"
// @Param HourlyRate formData number false "Hourly rate"
// @Param TotalAmount formData number false "Total amount"
// @Param ImageFile formData file false "Replacement document"
// @Success 200 {object} models.Claim
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /Claims/Edit/{id} [post]
func (s *Server) EditClaim(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var version uint
	if raw := strings.TrimSpace(c.FormValue("Version")); raw != "" {
		v, convErr := strconv.ParseUint(raw, 10, 32)
		if convErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewFieldValidationError("Version", "must be a non-negative integer"))
		}
		version = uint(v)
	}

	form, err := parseClaimForm(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	defer form.close()

	claim, err := s.claimService.Edit(c.UserContext(), id, service.EditClaimInput{
		Version:      version,
		LecturerID:   form.LecturerID,
		HoursWorked:  form.HoursWorked,
		HourlyRate:   form.HourlyRate,
		TotalAmount:  form.TotalAmount,
		DocumentType: form.DocumentType,
		Notes:        form.Notes,
		Attachment:   form.Attachment,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claim)
}

// DeleteClaim handles POST /Claims/Delete/:id
// @Summary Delete a claim
// @Tags claims
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 204
// @Router /Claims/Delete/{id} [post]
func (s *Server) DeleteClaim(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.claimService.Delete(c.UserContext(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RejectClaim handles POST /Claims/Reject/:id
// @Summary Reject a claim
// @Tags claims
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param comment formData string false "Reviewer comment"
// @Success 200 {object} models.Claim
// @Failure 404 {object} models.ErrorResponse
// @Router /Claims/Reject/{id} [post]
func (s *Server) RejectClaim(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	claim, err := s.claimService.Reject(c.UserContext(), id, c.FormValue("comment"), caller.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claim)
}

// ApproveClaim handles POST /Claims/Approve/:id
// @Summary Approve a claim
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} models.Claim
// @Failure 404 {object} models.ErrorResponse
// @Router /Claims/Approve/{id} [post]
func (s *Server) ApproveClaim(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return nil
	}
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	claim, err := s.claimService.Approve(c.UserContext(), id, caller.Email)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(claim)
}

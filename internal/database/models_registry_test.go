package database

import (
	"testing"

	modelspkg "claimpro/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesClaim(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.Claim); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Claim")
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RyanrealAF/Labcoat/internal/core/domain"
)

func TestSchemaGate(t *testing.T) {
	tests := []struct {
		name   string
		store  fakeSchemaStore
		want   error
		reason string
	}{
		{name: "marker absent", store: fakeSchemaStore{}, want: domain.ErrSchemaNotInitialized, reason: "schema_not_initialized"},
		{name: "marker outdated", store: fakeSchemaStore{version: 0, ok: true}, want: domain.ErrSchemaOutdated, reason: "schema_outdated"},
		{name: "marker current", store: fakeSchemaStore{version: RequiredSchemaVersion, ok: true}},
		{name: "marker ahead", store: fakeSchemaStore{version: RequiredSchemaVersion + 3, ok: true}},
		{name: "store down", store: fakeSchemaStore{err: errStoreDown}, want: domain.ErrTransientStore, reason: "schema_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchemaGate(tt.store).CheckSchema(context.Background())
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.reason, SchemaFailureReason(err))
		})
	}
}

func TestSchemaGate_OutdatedCarriesVersions(t *testing.T) {
	err := NewSchemaGate(fakeSchemaStore{version: 0, ok: true}).CheckSchema(context.Background())

	var se *domain.SchemaError
	if assert.ErrorAs(t, err, &se) {
		assert.Equal(t, 0, se.Current)
		assert.Equal(t, 1, se.Required)
	}
}

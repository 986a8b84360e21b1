package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amiryogi/bivanhandicraft-sub001/internal/models"
)

func TestValidateInitiateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.InitiateRequest
		wantErr bool
	}{
		{name: "valid", req: models.InitiateRequest{OrderID: "ORD123", Amount: 1000}},
		{name: "fractional amount", req: models.InitiateRequest{OrderID: "ORD123", Amount: 110.5}},
		{name: "missing order id", req: models.InitiateRequest{Amount: 1000}, wantErr: true},
		{name: "zero amount", req: models.InitiateRequest{OrderID: "ORD123"}, wantErr: true},
		{name: "negative amount", req: models.InitiateRequest{OrderID: "ORD123", Amount: -1}, wantErr: true},
		{name: "underscore in order id", req: models.InitiateRequest{OrderID: "ORD_123", Amount: 1000}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInitiateRequest(&tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVerifyRequest(t *testing.T) {
	assert.ErrorIs(t, ValidateVerifyRequest(&models.VerifyRequest{}), ErrValidation)
	assert.NoError(t, ValidateVerifyRequest(&models.VerifyRequest{EncodedData: "Zm9v"}))
}

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amiryogi/bivanhandicraft-sub001/internal/models"
)

// ErrValidation marks caller errors on the initiation request; handlers map
// it to HTTP 400.
var ErrValidation = errors.New("validation failed")

// ValidateInitiateRequest checks the initiation input before any signing
// happens. The underscore rule protects transaction-uuid parsing: the order
// id is recovered as the prefix before the first underscore, so an id
// containing one would be misparsed on verification.
func ValidateInitiateRequest(req *models.InitiateRequest) error {
	if req.OrderID == "" {
		return fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if strings.Contains(req.OrderID, "_") {
		return fmt.Errorf("%w: orderId must not contain an underscore", ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// ValidateVerifyRequest checks the verification input envelope. Payload
// decoding and signature checks happen downstream in the gateway client.
func ValidateVerifyRequest(req *models.VerifyRequest) error {
	if req.EncodedData == "" {
		return fmt.Errorf("%w: encodedData is required", ErrValidation)
	}
	return nil
}

package suggestion

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// MaxTextBytes bounds the size of a single payload text.
const MaxTextBytes = 4 << 20

var (
	// ErrInvalidPayload is returned for a payload that fails validation.
	ErrInvalidPayload = errors.New("invalid suggestion payload")

	// ErrOutOfRange is returned when a payload position does not fit the
	// document.
	ErrOutOfRange = errors.New("suggestion position out of range")
)

// validate is shared by all payloads; it is safe for concurrent use.
var validate = mustValidator()

func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("maxbytes", validateMaxBytes); err != nil {
		return nil, fmt.Errorf("register maxbytes validation: %w", err)
	}
	return v, nil
}

func mustValidator() *validator.Validate {
	v, err := newValidator()
	if err != nil {
		panic("suggestion: " + err.Error())
	}
	return v
}

// validateMaxBytes checks the byte length of a string field against
// MaxTextBytes. len() counts bytes where the builtin max tag counts runes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxTextBytes
}

// Position is a half-open byte span [Start, End) of the document.
type Position struct {
	Start int `json:"start" yaml:"start" validate:"gte=0"`
	End   int `json:"end" yaml:"end" validate:"gte=0,gtefield=Start"`
}

// Payload is one suggestion: replace OriginalText at Position with
// SuggestedText.
type Payload struct {
	OriginalText  string   `json:"originalText" yaml:"originalText" validate:"maxbytes"`
	SuggestedText string   `json:"suggestedText" yaml:"suggestedText" validate:"maxbytes"`
	Position      Position `json:"position" yaml:"position"`

	// Author overrides the author of the enclosing file.
	Author string `json:"author,omitempty" yaml:"author,omitempty" validate:"max=256"`
}

// Validate checks the payload fields and that its position fits a document of
// docLen bytes.
func (p Payload) Validate(docLen int) error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidPayload, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Position.End > docLen {
		return fmt.Errorf("%w: [%d, %d) in document of %d bytes", ErrOutOfRange, p.Position.Start, p.Position.End, docLen)
	}
	return nil
}

// Normalize returns p with SuggestedText in Unicode NFC, so that composed
// and decomposed spellings of the same character do not diff. It leaves p
// unchanged when OriginalText is not itself NFC, since the document then
// uses another form deliberately.
func Normalize(p Payload) Payload {
	if !norm.NFC.IsNormalString(p.OriginalText) {
		return p
	}
	p.SuggestedText = norm.NFC.String(p.SuggestedText)
	return p
}

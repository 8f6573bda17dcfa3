package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/strategy-canvas/pkg/graph"
)

var (
	validate *validator.Validate

	MaxTitleLength  = 200
	MaxPayloadKeys  = 100
	MaxPayloadKey   = 100
	MaxDocumentRefs = 500

	payloadKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("nodekind", func(fl validator.FieldLevel) bool {
		_, err := graph.ParseKind(fl.Field().String())
		return err == nil
	})
}

// NodeRequest adds a node. X and Y are canvas units; when both are absent
// the canvas picks a position.
type NodeRequest struct {
	Kind    string         `json:"kind" validate:"required,nodekind"`
	Title   string         `json:"title" validate:"max=200"`
	X       *float64       `json:"x" validate:"required_with=Y"`
	Y       *float64       `json:"y" validate:"required_with=X"`
	Payload map[string]any `json:"payload" validate:"omitempty,max=100"`
}

// NodePatchRequest renames, reparents or replaces the payload of a node.
type NodePatchRequest struct {
	Title         *string        `json:"title" validate:"omitempty,max=200"`
	ParentGroupID *string        `json:"parentGroupId"`
	Payload       map[string]any `json:"payload" validate:"omitempty,max=100"`
}

// ConnectionRequest adds or removes the directed edge From → To.
type ConnectionRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// PointerRequest is one pointer event in client pixels.
type PointerRequest struct {
	Type string  `json:"type" validate:"required,oneof=down move up leave cancel"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// WheelRequest zooms by Factor around the client point (X, Y).
type WheelRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Factor float64 `json:"factor" validate:"gt=0,lte=10"`
}

// LayoutRequest arranges every node with the named algorithm.
type LayoutRequest struct {
	Algorithm string `json:"algorithm" validate:"required,oneof=grid circular hierarchical force"`
}

// ViewRequest runs a view action: reset, fit, zoom, or restore of the
// caller's saved view. Factor applies to zoom; Width and Height to fit,
// defaulting to the canvas container.
type ViewRequest struct {
	Action string  `json:"action" validate:"required,oneof=reset fit zoom restore"`
	Factor float64 `json:"factor" validate:"required_if=Action zoom,omitempty,gt=0,lte=10"`
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

// ValidateNodeRequest validates a node creation request.
func ValidateNodeRequest(req *NodeRequest) error {
	if req == nil {
		return errors.New("node request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return FormatError(err)
	}
	return ValidatePayload(req.Payload)
}

// ValidateNodePatchRequest requires at least one field.
func ValidateNodePatchRequest(req *NodePatchRequest) error {
	if req == nil {
		return errors.New("patch request cannot be nil")
	}
	if req.Title == nil && req.ParentGroupID == nil && req.Payload == nil {
		return errors.New("patch: at least one of title, parentGroupId, payload is required")
	}
	if err := validate.Struct(req); err != nil {
		return FormatError(err)
	}
	return ValidatePayload(req.Payload)
}

// Struct validates any tagged request.
func Struct(req any) error {
	if err := validate.Struct(req); err != nil {
		return FormatError(err)
	}
	return nil
}

// ValidatePayload checks payload keys and the document list of
// document-agent payloads.
func ValidatePayload(p map[string]any) error {
	if len(p) > MaxPayloadKeys {
		return fmt.Errorf("Payload: maximum %d keys allowed, got %d", MaxPayloadKeys, len(p))
	}
	for key, v := range p {
		if err := ValidatePayloadKey(key); err != nil {
			return fmt.Errorf("Payload: %w", err)
		}
		if key != "documentIds" {
			continue
		}
		ids, ok := v.([]any)
		if !ok {
			return errors.New("Payload: documentIds must be a list")
		}
		if len(ids) > MaxDocumentRefs {
			return fmt.Errorf("Payload: maximum %d document ids allowed, got %d", MaxDocumentRefs, len(ids))
		}
		for i, id := range ids {
			if s, ok := id.(string); !ok || s == "" {
				return fmt.Errorf("Payload: documentIds[%d] must be a non-empty string", i)
			}
		}
	}
	return nil
}

// ValidatePayloadKey validates a payload key.
func ValidatePayloadKey(key string) error {
	if key == "" {
		return errors.New("payload key cannot be empty")
	}
	if len(key) > MaxPayloadKey {
		return fmt.Errorf("payload key '%s' exceeds maximum length of %d characters", key, MaxPayloadKey)
	}
	if !payloadKeyPattern.MatchString(key) {
		return fmt.Errorf("payload key '%s' is invalid (must start with letter or underscore, followed by alphanumeric or underscore)", key)
	}
	return nil
}

// FormatError converts validator errors to a user-facing message naming the
// first offending field.
func FormatError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required", "required_if", "required_with":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "gtefield", "gtfield":
			return fmt.Errorf("%s: must not be less than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "nodekind":
			return fmt.Errorf("%s: unknown node kind %q", field, e.Value())
		case "dive":
			return fmt.Errorf("%s: invalid element in array", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

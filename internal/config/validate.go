package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/commgraph/commgraph/internal/core/message"
	"github.com/commgraph/commgraph/internal/core/topology"
)

// validate is the struct validator with the topology-specific tags
var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("message_kind", validateMessageKind)
	validate.RegisterValidation("topology_type", validateTopologyType)
	validate.RegisterValidation("anchor_mode", validateAnchorMode)

	// report the file's key names, not Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

func validateMessageKind(fl validator.FieldLevel) bool {
	_, err := message.KindFromConfig(fl.Field().String())
	return err == nil
}

func validateTopologyType(fl validator.FieldLevel) bool {
	_, err := topology.ParseType(fl.Field().String())
	return err == nil
}

func validateAnchorMode(fl validator.FieldLevel) bool {
	switch topology.AnchorMode(fl.Field().String()) {
	case topology.AnchorFixed, topology.AnchorRandom:
		return true
	}
	return false
}

// structProblems runs the validator and renders each failure as
// "path: message"
func structProblems(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: %s", fieldPath(fe), problemMessage(fe)))
	}
	return out
}

// fieldPath drops the root struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func problemMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "message_kind":
		return fmt.Sprintf("%q is not a message type, use one of %s", fe.Value(), message.KindNames(message.AllKinds))
	case "topology_type":
		return fmt.Sprintf("%q is not a topology, use single, star, blackboard or mesh", fe.Value())
	case "anchor_mode":
		return fmt.Sprintf("%q is not an anchor selection mode, use fixed or random", fe.Value())
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

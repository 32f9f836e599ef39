package message

import "errors"

// UserFacing is implemented by errors that carry a short explanation meant
// for the agent that caused them.
type UserFacing interface {
	UserMessage() string
}

var shapeMessages = map[Reason]string{
	ReasonNoCodeBlock:     "Your response must be enclosed in code blocks (```)",
	ReasonEmptyCodeBlock:  "Your code block is empty",
	ReasonInvalidLanguage: "Your code block must not specify a language or use 'json' only",
	ReasonInvalidJSON:     "Your response contains invalid JSON format",
	ReasonNotObject:       "Your response contains invalid JSON format",
	ReasonUnknownKind:     "The message type you specified is not valid",
	ReasonTargetRequired:  "Your message type requires specifying a recipient in the 'to' field",
	ReasonTargetForbidden: "Your message type should not include a 'to' field",
	ReasonFromMismatch:    "The 'from' field must match your current role",
}

// UserMessage implements UserFacing
func (e *ShapeError) UserMessage() string {
	switch e.Reason {
	case ReasonMissingField:
		if e.Field != "" {
			return "Your response is missing the '" + e.Field + "' field"
		}
		return "Your response is missing required fields"
	case ReasonWrongFieldType:
		if e.Field == "content" {
			return "Your content format is incorrect for this message type"
		}
		return "Your response format is incorrect"
	}
	if msg, ok := shapeMessages[e.Reason]; ok {
		return msg
	}
	return "Your response format is incorrect"
}

// UserMessage implements UserFacing
func (e *PermissionError) UserMessage() string {
	if e.Direction == DirectionReceive {
		return "The target role cannot receive this message type"
	}
	return "The message type you specified is not allowed for your role"
}

// UserMessage translates any error into the sentence shown to the agent on
// a re-prompt.
func UserMessage(err error) string {
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}
	return "Your action could not be processed"
}

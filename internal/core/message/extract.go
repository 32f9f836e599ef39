package message

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlock = regexp.MustCompile("```([a-zA-Z]*)\\s*([\\s\\S]*?)\\s*```")

// ExtractObject pulls the first fenced code block out of agent text and
// decodes it as a JSON object. Only untagged and json-tagged blocks count.
func ExtractObject(text string) (map[string]any, error) {
	match := codeBlock.FindStringSubmatch(text)
	if match == nil {
		return nil, &ShapeError{Reason: ReasonNoCodeBlock, Detail: "no code block found"}
	}
	if lang := match[1]; lang != "" && !strings.EqualFold(lang, "json") {
		return nil, &ShapeError{Reason: ReasonInvalidLanguage, Detail: "language identifier " + lang + " is not allowed, use json or none"}
	}

	body := strings.TrimSpace(match[2])
	if body == "" {
		return nil, &ShapeError{Reason: ReasonEmptyCodeBlock, Detail: "empty code block"}
	}

	var decoded any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, &ShapeError{Reason: ReasonInvalidJSON, Detail: err.Error()}
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ShapeError{Reason: ReasonNotObject, Detail: "code block is not a JSON object"}
	}
	return obj, nil
}

package extract

import "strings"

// Text flattens an arbitrarily nested provider reply into one string. Strings
// are collected directly, slices element by element; objects contribute their
// "text" field and recurse into "content". Known top-level shapes are probed
// in a fixed order so both chat-style and completion-style replies work.
// Returns an empty string when nothing textual is found.
func Text(reply interface{}) string {
	var segments []string

	var collect func(value interface{})
	collect = func(value interface{}) {
		switch v := value.(type) {
		case string:
			if v != "" {
				segments = append(segments, v)
			}
		case []interface{}:
			for _, element := range v {
				collect(element)
			}
		case map[string]interface{}:
			if text, ok := v["text"].(string); ok && text != "" {
				segments = append(segments, text)
			}
			if content, ok := v["content"]; ok {
				collect(content)
			}
		}
	}

	if root, ok := reply.(map[string]interface{}); ok {
		if message, ok := root["message"].(map[string]interface{}); ok {
			collect(message["content"])
		}
		collect(root["response"])
		collect(root["output_text"])
		collect(root["output"])
		collect(root["content"])
	} else {
		collect(reply)
	}

	return strings.TrimSpace(strings.Join(segments, "\n"))
}

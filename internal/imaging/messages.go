package imaging

import "sync"

// ConditionMessages walks a decoded Anthropic-style message list, conditions
// every embedded base64 image part to targetWidth and updates each part in
// place. Parts are independent, so they are conditioned concurrently through
// the pool and joined before returning; a failing part keeps its original
// bytes without blocking the others.
func (c *Conditioner) ConditionMessages(pool *Pool, messages []interface{}, targetWidth int) {
	var wg sync.WaitGroup

	for _, rawMessage := range messages {
		message, ok := rawMessage.(map[string]interface{})
		if !ok {
			continue
		}
		content, ok := message["content"].([]interface{})
		if !ok {
			continue
		}
		for _, rawPart := range content {
			part, ok := rawPart.(map[string]interface{})
			if !ok || part["type"] != "image" {
				continue
			}
			source, ok := part["source"].(map[string]interface{})
			if !ok || source["type"] != "base64" {
				continue
			}
			data, ok := source["data"].(string)
			if !ok {
				continue
			}
			mediaType, _ := source["media_type"].(string)

			wg.Add(1)
			src := source
			pool.Submit(func() {
				defer wg.Done()
				conditioned, effectiveType := c.Condition(data, mediaType, targetWidth)
				src["data"] = conditioned
				src["media_type"] = effectiveType
			})
		}
	}

	wg.Wait()
}

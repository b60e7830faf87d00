package checklist

import (
	"fmt"
	"strings"
	"time"
)

// GenericPlaceholder is the throwaway name the parse prompts seed into model
// output; a checklist carrying it is treated as unnamed.
const GenericPlaceholder = "自訂檢查項目"

// fallbackIcons is the rotating palette used when an item carries no icon.
var fallbackIcons = []string{"📌", "🛠️", "🔍", "✅", "📏", "🏗️", "🧱", "🔧", "📐", "🧰"}

// Item is one normalized inspection item.
type Item struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Standard string `json:"standard"`
}

// Checklist is the canonical structured inspection result.
type Checklist struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// Sanitize collapses whitespace runs to single spaces and trims.
func Sanitize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Normalize validates and defaults an untrusted checklist object into the
// canonical shape. Items missing a name or standard are dropped; a checklist
// with no surviving items is rejected as nil.
func Normalize(raw map[string]interface{}, requestedName, providerLabel string) *Checklist {
	if raw == nil {
		return nil
	}

	now := time.Now()
	dateTag := now.Format("2006-01-02")

	fallbackName := Sanitize(requestedName)
	if fallbackName == "" || fallbackName == GenericPlaceholder {
		// Sub-second suffix keeps rapid successive custom names distinct
		suffix := now.UnixMilli() % 100000
		fallbackName = fmt.Sprintf("自訂檢查類型 %s#%d", dateTag, suffix)
	}

	name := Sanitize(stringField(raw, "name"))
	if name == "" || name == GenericPlaceholder {
		name = fallbackName
	}

	description := Sanitize(stringField(raw, "description"))
	if description == "" {
		description = fmt.Sprintf("%s 的檢查項目 (%s 產出於 %s)", name, providerLabel, dateTag)
	}

	rawItems, _ := raw["items"].([]interface{})
	items := make([]Item, 0, len(rawItems))
	for idx, rawItem := range rawItems {
		item, ok := rawItem.(map[string]interface{})
		if !ok {
			continue
		}

		itemName := Sanitize(stringField(item, "name"))
		standard := firstNonEmpty(
			Sanitize(stringField(item, "standard")),
			Sanitize(stringField(item, "criteria")),
			Sanitize(stringField(item, "requirement")),
		)
		if itemName == "" || standard == "" {
			continue
		}

		icon := Sanitize(stringField(item, "icon"))
		if icon == "" {
			icon = fallbackIcons[idx%len(fallbackIcons)]
		}

		items = append(items, Item{Name: itemName, Icon: icon, Standard: standard})
	}

	if len(items) == 0 {
		return nil
	}

	return &Checklist{
		Name:        name,
		Description: description,
		Items:       items,
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

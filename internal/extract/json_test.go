package extract

import "testing"

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]interface{}
	}{
		{
			name: "plain object",
			text: `{"a": 1}`,
			want: map[string]interface{}{"a": 1.0},
		},
		{
			name: "fenced json with surrounding prose",
			text: "noise ```json {\"a\":1} ``` trailing",
			want: map[string]interface{}{"a": 1.0},
		},
		{
			name: "bare fence",
			text: "```\n{\"ok\": true}\n```",
			want: map[string]interface{}{"ok": true},
		},
		{
			name: "object embedded in prose",
			text: "以下是解析結果：{\"name\": \"檢查表\"} 請確認。",
			want: map[string]interface{}{"name": "檢查表"},
		},
		{
			name: "not json at all",
			text: "not json at all",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "unbalanced braces",
			text: "{\"a\": ",
			want: nil,
		},
		{
			name: "uppercase fence tag",
			text: "```JSON\n{\"b\": 2}\n```",
			want: map[string]interface{}{"b": 2.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JSON(tt.text)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("Expected nil, got %v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Expected %v, got nil", tt.want)
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("Expected %s=%v, got %v", key, want, got[key])
				}
			}
		})
	}
}

func TestJSON_PrefersStrictParse(t *testing.T) {
	// The whole cleaned text is one valid object; the brace fallback never runs
	got := JSON(`{"items": [{"name": "鋼筋間距"}]}`)
	if got == nil {
		t.Fatal("Expected parsed object")
	}
	items, ok := got["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatalf("Expected one item, got %v", got["items"])
	}
}

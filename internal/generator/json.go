package generator

import "strings"

// extractJSONObject достаёт первый сбалансированный JSON-объект из ответа
// модели. Модели регулярно заворачивают JSON в markdown-ограждения или
// сопровождают его пояснительным текстом; всё это нужно срезать до парсинга.
func extractJSONObject(text string) (string, bool) {
	text = stripCodeFences(text)

	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(text[start : i+1]), true
			}
		}
	}
	return "", false
}

// stripCodeFences убирает обёртку ```json ... ``` или ``` ... ```.
func stripCodeFences(text string) string {
	if start := strings.Index(text, "```json"); start >= 0 {
		content := text[start+len("```json"):]
		if end := strings.Index(content, "```"); end >= 0 {
			return strings.TrimSpace(content[:end])
		}
		return strings.TrimSpace(content)
	}
	if start := strings.Index(text, "```"); start >= 0 {
		content := text[start+3:]
		if end := strings.Index(content, "```"); end >= 0 {
			return strings.TrimSpace(content[:end])
		}
		return strings.TrimSpace(content)
	}
	return text
}

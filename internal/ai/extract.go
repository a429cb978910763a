package ai

// Models are asked for bare JSON but regularly wrap it in markdown fences or
// prose. extractJSON pulls the first balanced JSON object out of free text.
func extractJSON(content string) (string, bool) {
	start := findJSONStart(content)
	if start < 0 {
		return "", false
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return "", false
	}
	return content[start:end], true
}

// findJSONStart finds the first '{' in the content.
func findJSONStart(content string) int {
	for i := 0; i < len(content); i++ {
		if content[i] == '{' {
			return i
		}
	}
	return -1
}

// findJSONEnd counts braces from start to find the matching closing brace,
// skipping brace characters inside JSON strings.
func findJSONEnd(content string, start int) int {
	if start < 0 || start >= len(content) || content[start] != '{' {
		return -1
	}

	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}

		if char == '\\' {
			escapeNext = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		if char == '{' {
			braceCount++
		} else if char == '}' {
			braceCount--
			if braceCount == 0 {
				return i + 1
			}
		}
	}

	return -1
}

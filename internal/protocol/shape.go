package protocol

// Matches reports whether candidate has the same element kinds as template,
// position by position. Codes and numeric values are not compared.
func Matches(candidate, template Message) bool {
	if len(candidate) != len(template) {
		return false
	}
	for i := range candidate {
		if candidate[i].kind != template[i].kind {
			return false
		}
	}
	return true
}

// Shape names a message layout recognised by kind only.
type Shape struct {
	Name     string
	Template Message
}

func (s Shape) Match(msg Message) bool {
	return Matches(msg, s.Template)
}

// Classify returns the first shape msg matches.
func Classify(msg Message, shapes ...Shape) (Shape, bool) {
	for _, s := range shapes {
		if s.Match(msg) {
			return s, true
		}
	}
	return Shape{}, false
}

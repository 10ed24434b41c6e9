package domain

import "time"

// Contact is a single address-book entry that has a birth date.
type Contact struct {
	Name     string
	Birthday time.Time
}

// Card represents a single question-answer entry derived from a contact.
type Card struct {
	Question string
	Answer   string
}

// Fields returns the card's values in template field order.
func (c Card) Fields() []string {
	return []string{c.Question, c.Answer}
}

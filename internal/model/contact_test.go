package model

import "testing"

func TestContainsSpamKeyword(t *testing.T) {
	spam := []string{
		"cheap viagra here",
		"Visit our CASINO tonight",
		"You are the lottery WINNER of a big prize",
		"Click Here to claim",
		"get free money now",
	}
	for _, msg := range spam {
		if !ContainsSpamKeyword(msg) {
			t.Errorf("ContainsSpamKeyword(%q) = false, want true", msg)
		}
	}

	clean := []string{
		"Hello, I would like to discuss a project.",
		"Question about your downloads page",
		"",
	}
	for _, msg := range clean {
		if ContainsSpamKeyword(msg) {
			t.Errorf("ContainsSpamKeyword(%q) = true, want false", msg)
		}
	}
}

func TestValidContactStatus(t *testing.T) {
	for _, s := range ContactStatuses() {
		if !ValidContactStatus(s) {
			t.Errorf("ValidContactStatus(%q) = false", s)
		}
	}
	if ValidContactStatus("pending") {
		t.Error("ValidContactStatus(pending) = true, want false")
	}
}

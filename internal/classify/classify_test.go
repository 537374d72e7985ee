package classify

import (
	"reflect"
	"testing"
)

func TestTopicsStudentLoans(t *testing.T) {
	topics := Topics("Student Loan Relief Act", "")
	if len(topics) == 0 {
		t.Fatalf("expected topics, got none")
	}
	found := false
	for _, topic := range topics {
		if topic == "Student Loans" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Student Loans in %v", topics)
	}
}

func TestTopicsEmptyInput(t *testing.T) {
	topics := Topics("", "")
	if topics == nil {
		t.Fatalf("expected non-nil empty set")
	}
	if len(topics) != 0 {
		t.Fatalf("expected empty set, got %v", topics)
	}
}

func TestTopicsNoMatchStaysEmpty(t *testing.T) {
	topics := Topics("Commemorative Coin Redesignation", "")
	if len(topics) != 0 {
		t.Fatalf("expected empty set, got %v", topics)
	}
}

func TestTopicsDeterministic(t *testing.T) {
	title := "Clean Air and Clean Water Restoration Act"
	summary := "A bill to reduce carbon emissions and fund renewable energy."
	first := Topics(title, summary)
	for i := 0; i < 5; i++ {
		if got := Topics(title, summary); !reflect.DeepEqual(got, first) {
			t.Fatalf("classification not deterministic: %v vs %v", got, first)
		}
	}
}

func TestTopicsMultipleTags(t *testing.T) {
	topics := Topics("Mental Health Services for Students Act", "Expands counseling in schools.")
	want := map[string]bool{"Education": true, "Mental Health": true}
	for _, topic := range topics {
		delete(want, topic)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected topics %v in %v", want, topics)
	}
}

func TestTopicsSharedKeywordTagsAllTopics(t *testing.T) {
	// "tuition" sits in both the Education and Student Loans tables; a hit
	// must tag both, not whichever owns the pattern slot.
	topics := Topics("Tuition Affordability Act", "")
	want := map[string]bool{"Education": true, "Student Loans": true}
	for _, topic := range topics {
		delete(want, topic)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected topics %v in %v", want, topics)
	}

	// Same for "treatment", shared by Mental Health and Healthcare.
	topics = Topics("Substance Abuse Treatment Access Act", "")
	want = map[string]bool{"Mental Health": true, "Healthcare": true}
	for _, topic := range topics {
		delete(want, topic)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected topics %v in %v", want, topics)
	}
}

func TestTopicsShortTextIgnored(t *testing.T) {
	// Anything under the minimum meaningful length is left untagged.
	if got := Topics("tax", ""); len(got) != 0 {
		t.Fatalf("expected empty set for short text, got %v", got)
	}
}

func TestTopicsTaggedOncePerTopic(t *testing.T) {
	// Several Education keywords in one title must not duplicate the tag.
	topics := Topics("Student Teacher Classroom Improvement Act", "")
	seen := map[string]int{}
	for _, topic := range topics {
		seen[topic]++
	}
	if seen["Education"] != 1 {
		t.Fatalf("expected Education exactly once, got %v", topics)
	}
}

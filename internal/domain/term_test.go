package domain

import (
	"errors"
	"testing"
)

func TestTermIsValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		term Term
		want bool
	}{
		{"complete", Term{ID: "GO:0000001", Name: "mitochondrion inheritance", Namespace: "biological_process"}, true},
		{"blank id", Term{ID: " ", Name: "n", Namespace: "ns"}, false},
		{"blank name", Term{ID: "GO:0000001", Name: "", Namespace: "ns"}, false},
		{"blank namespace", Term{ID: "GO:0000001", Name: "n", Namespace: "\t"}, false},
		{"zero", Term{}, false},
	}

	for _, tc := range cases {
		if got := tc.term.IsValid(); got != tc.want {
			t.Fatalf("%s: IsValid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTermIsObsolete(t *testing.T) {
	t.Parallel()

	cases := []struct {
		def  string
		want bool
	}{
		{"OBSOLETE. The process of ...", true},
		{"This term was made obsolete because ...", true},
		{"An ObSoLeTe definition", true},
		{"The distribution of mitochondria.", false},
		{"", false},
	}

	for _, tc := range cases {
		term := Term{Definition: tc.def}
		if got := term.IsObsolete("obsolete"); got != tc.want {
			t.Fatalf("IsObsolete(%q) = %v, want %v", tc.def, got, tc.want)
		}
	}

	if (Term{Definition: "obsolete"}).IsObsolete("") {
		t.Fatal("empty marker must never match")
	}
}

func TestSynonymID(t *testing.T) {
	t.Parallel()

	if got := SynonymID("GO:0000001", 1); got != "GO:0000001#1" {
		t.Fatalf("unexpected synonym id: %s", got)
	}
	if SynonymID("GO:0000001", 11) == SynonymID("GO:0000011", 1) {
		t.Fatal("synonym ids must not collide across terms")
	}
}

func TestNewPublicationSet(t *testing.T) {
	t.Parallel()

	got := NewPublicationSet(map[int]struct{}{8936405: {}, 3886029: {}, 1234567: {}})
	want := []int{1234567, 3886029, 8936405}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if NewPublicationSet(nil) != nil {
		t.Fatal("expected nil set for no ids")
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := error(&StageError{Stage: "relationships", TermID: "GO:0000001", Err: ErrMissingEndpoint})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatal("expected StageError to unwrap to its cause")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "relationships" {
		t.Fatalf("unexpected stage error: %v", err)
	}
}

func TestPublicationAttributes(t *testing.T) {
	t.Parallel()

	attrs := Publication{ID: "123", Title: "A title", DOI: "10.1/x"}.Attributes()
	if attrs["title"] != "A title" || attrs["doi"] != "10.1/x" {
		t.Fatalf("unexpected attributes: %v", attrs)
	}
	if _, ok := attrs["journal"]; ok {
		t.Fatal("empty fields must not be emitted")
	}
}

package natsadapter

import (
	"strings"
	"testing"
)

func TestSubject(t *testing.T) {
	for _, op := range []string{"nearest", "route"} {
		subj := Subject(op)
		if subj != "hazards.query."+op {
			t.Errorf("Subject(%q) = %q", op, subj)
		}
		if !strings.HasPrefix(subj, strings.TrimSuffix(subjectPattern, ">")) {
			t.Errorf("%q is not covered by stream pattern %q", subj, subjectPattern)
		}
	}
}

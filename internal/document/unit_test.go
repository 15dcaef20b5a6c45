package document

import (
	"strings"
	"testing"
)

func TestMergeChildrenFollowsOrdinals(t *testing.T) {
	parent := New(LevelSection, 0, "Results", "write the results section")
	// Children added out of ordinal order, as a parallel run would.
	for _, tc := range []struct {
		ordinal int
		content string
	}{
		{2, "third"},
		{0, "first"},
		{1, "second"},
	} {
		child, err := parent.NewChild(tc.ordinal, "", "")
		if err != nil {
			t.Fatalf("new child: %v", err)
		}
		child.Finalize(tc.content)
	}
	merged, err := parent.MergeChildren()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged != "first\n\nsecond\n\nthird" {
		t.Fatalf("unexpected merge order: %q", merged)
	}
}

func TestMergeChildrenRejectsNonTerminalChild(t *testing.T) {
	parent := New(LevelDocument, 0, "", "write the document")
	child, err := parent.NewChild(0, "Intro", "")
	if err != nil {
		t.Fatalf("new child: %v", err)
	}
	child.Status = StatusInProgress
	if _, err := parent.MergeChildren(); err == nil {
		t.Fatal("expected error merging with in-progress child")
	}
}

func TestMergeChildrenRejectsFailedChild(t *testing.T) {
	parent := New(LevelDocument, 0, "", "")
	child, _ := parent.NewChild(0, "Intro", "")
	child.Fail("all producers failed")
	if _, err := parent.MergeChildren(); err == nil {
		t.Fatal("expected error merging with failed child")
	}
}

func TestValidateOrdinalsDetectsDuplicates(t *testing.T) {
	parent := New(LevelSubsection, 0, "", "")
	a, _ := parent.NewChild(0, "", "")
	b, _ := parent.NewChild(0, "", "")
	a.Finalize("a")
	b.Finalize("b")
	if err := parent.ValidateOrdinals(); err == nil {
		t.Fatal("expected duplicate ordinal error")
	}
}

func TestFailurePathNamesDeepestUnit(t *testing.T) {
	root := New(LevelDocument, 0, "", "")
	section, _ := root.NewChild(0, "Background", "")
	sub, _ := section.NewChild(1, "Prior Work", "")
	block, _ := sub.NewChild(0, "", "state the main lemma")

	block.Fail("candidates exhausted")
	sub.Fail("child failed")
	section.Fail("child failed")
	root.Fail("child failed")

	path := root.FailurePath()
	if len(path) != 4 {
		t.Fatalf("expected 4 path entries, got %d: %v", len(path), path)
	}
	if !strings.Contains(path[3], block.ID) {
		t.Fatalf("deepest entry should name the block, got %q", path[3])
	}
	if !strings.Contains(path[0], root.ID) {
		t.Fatalf("first entry should name the root, got %q", path[0])
	}
}

func TestLevelChildChain(t *testing.T) {
	level := LevelDocument
	var chain []Level
	for {
		chain = append(chain, level)
		next, ok := level.Child()
		if !ok {
			break
		}
		level = next
	}
	if len(chain) != NumLevels {
		t.Fatalf("expected %d levels, got %d", NumLevels, len(chain))
	}
	if !LevelBlock.IsLeaf() || LevelSubsection.IsLeaf() {
		t.Fatal("only block level should be a leaf")
	}
}

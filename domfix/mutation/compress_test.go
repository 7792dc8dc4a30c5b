package mutation

import "testing"

func TestCompress_AttrRun(t *testing.T) {
	recs := []Record{
		{Op: OpAttr, XPath: "/div", Name: "style", Value: "a", OldValue: "orig"},
		{Op: OpAttr, XPath: "/div", Name: "style", Value: "b", OldValue: "a"},
		{Op: OpAttr, XPath: "/div", Name: "data-fx", Value: "row"},
	}
	got := Compress(recs)
	if len(got) != 2 {
		t.Fatalf("Compress: got %d records, want 2", len(got))
	}
	if got[0].Value != "b" || got[0].OldValue != "orig" {
		t.Errorf("folded: got value=%q old=%q", got[0].Value, got[0].OldValue)
	}
}

func TestCompress_TextRun(t *testing.T) {
	recs := []Record{
		{Op: OpText, XPath: "/span", Value: "1", OldValue: "0"},
		{Op: OpText, XPath: "/span", Value: "$1.00", OldValue: "1"},
	}
	got := Compress(recs)
	if len(got) != 1 || got[0].Value != "$1.00" || got[0].OldValue != "0" {
		t.Errorf("Compress: got %+v", got)
	}
}

func TestCompress_StructuralKept(t *testing.T) {
	recs := []Record{
		{Op: OpInsert, XPath: "/div"},
		{Op: OpInsert, XPath: "/div"},
		{Op: OpRemove, XPath: "/div/img"},
		{Op: OpRemove, XPath: "/div/img"},
	}
	if got := Compress(recs); len(got) != 4 {
		t.Errorf("Compress: got %d records, want 4", len(got))
	}
}

func TestCompress_Empty(t *testing.T) {
	if got := Compress(nil); got != nil {
		t.Errorf("Compress(nil): got %v, want nil", got)
	}
}

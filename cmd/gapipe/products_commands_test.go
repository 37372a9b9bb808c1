package main

import (
	"testing"
)

func TestProductsList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "products", "list")
	if err != nil {
		t.Fatalf("products list: %v", err)
	}
	requireContains(t, out, "pfsSingle")
	requireContains(t, out, "pfsGAObject")
	requireContains(t, out, "pfsVisitHash")
}

func TestProductsFindFiltersByVisit(t *testing.T) {
	env := setupCLITestEnv(t)
	seedSpectra(t, env, 1001, 1002, 1003)

	out, _, err := runCLI(t, env, "products", "find", "pfsSingle", "--visit", "1001")
	if err != nil {
		t.Fatalf("products find: %v", err)
	}
	requireContains(t, out, "pfsSingle-10092-00001-1,1-000000000000002a-001001.fits")
	if countLines(out) != 1 {
		t.Fatalf("expected one match, got:\n%s", out)
	}

	out, _, err = runCLI(t, env, "products", "find", "pfsSingle", "--visit", "1001-1002")
	if err != nil {
		t.Fatalf("products find range: %v", err)
	}
	if countLines(out) != 2 {
		t.Fatalf("expected two matches in range, got:\n%s", out)
	}
}

func TestProductsLocate(t *testing.T) {
	env := setupCLITestEnv(t)
	seedSpectra(t, env, 1001, 1002)

	out, _, err := runCLI(t, env, "products", "locate", "pfsSingle", "--visit", "1002")
	if err != nil {
		t.Fatalf("products locate: %v", err)
	}
	requireContains(t, out, "001002.fits")

	// Two files match an unconstrained query.
	_, _, err = runCLI(t, env, "products", "locate", "pfsSingle")
	if err == nil {
		t.Fatal("expected ambiguity error")
	}
	requireContains(t, err.Error(), "ambiguous")
}

func TestProductsIdentity(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "products", "identity", "pfsSingle",
		"pfsSingle-10092-00001-1,1-000000000000002a-001001.fits")
	if err != nil {
		t.Fatalf("products identity: %v", err)
	}
	requireContains(t, out, "catId=10092")
	requireContains(t, out, "visit=1001")

	_, _, err = runCLI(t, env, "products", "identity", "pfsSingle", "not-a-product.fits")
	if err == nil {
		t.Fatal("expected parse error for unknown filename")
	}
}

func countLines(out string) int {
	n := 0
	for _, c := range out {
		if c == '\n' {
			n++
		}
	}
	return n
}

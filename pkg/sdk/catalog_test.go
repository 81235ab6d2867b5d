package sdk

import "testing"

func TestNewStandaloneClient_WithCatalogPath(t *testing.T) {
	client, err := NewStandaloneClient(WithCatalogPath("../../configs/catalog.yaml"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	reg := client.Catalog()
	if reg == nil {
		t.Fatal("Expected non-nil catalog registry")
	}

	for _, nodeType := range []string{"http", "transform", "llm", "conditional", "merge"} {
		if !reg.Has(nodeType) {
			t.Errorf("Expected catalog to have node type %q bound", nodeType)
		}
	}
}

func TestNewStandaloneClient_WithoutCatalogPath(t *testing.T) {
	client, err := NewStandaloneClient()
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	if reg := client.Catalog(); reg != nil {
		t.Errorf("Expected nil catalog registry without WithCatalogPath, got %v", reg)
	}
}

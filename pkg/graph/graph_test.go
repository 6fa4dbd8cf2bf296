package graph

import (
	"path/filepath"
	"strings"
	"testing"
)

func testDomain() Domain {
	return Domain{
		Nodes: []DomainNode{
			{ID: "web", Name: "Web", Path: "web", Type: NodeTypePresentation, ArchitectureLayer: TierPresentation},
			{ID: "auth", Name: "Auth", Path: "internal/auth", Type: NodeTypeCore, ArchitectureLayer: TierBusiness},
			{ID: "store", Name: "Store", Path: "internal/store", Type: NodeTypeData, ArchitectureLayer: TierData},
		},
		Relationships: []DomainRelationship{
			{Source: "web", Target: "auth", Type: RelationImport},
			{Source: "auth", Target: "store", Type: RelationCall},
			{Source: "web", Target: "store", Type: RelationImport},
		},
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{"presentation", TierPresentation},
		{"business", TierBusiness},
		{"data", TierData},
		{"infrastructure", TierInfrastructure},
		{"", TierBusiness},
		{"bogus", TierBusiness},
	}
	for _, tt := range tests {
		if got := ParseTier(tt.in); got != tt.want {
			t.Errorf("ParseTier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSortsAndCounts(t *testing.T) {
	d := testDomain()
	d.Normalize()

	// Sorted by ID: auth, store, web
	ids := []string{d.Nodes[0].ID, d.Nodes[1].ID, d.Nodes[2].ID}
	want := []string{"auth", "store", "web"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("sorted ids = %v, want %v", ids, want)
		}
	}

	if got := d.Node("store").DependentCount; got != 2 {
		t.Errorf("store DependentCount = %d, want 2", got)
	}
	if got := d.Node("web").DependentCount; got != 0 {
		t.Errorf("web DependentCount = %d, want 0", got)
	}
}

func TestDomainRoundTrip(t *testing.T) {
	d := testDomain()

	data, err := MarshalDomain(d)
	if err != nil {
		t.Fatalf("MarshalDomain: %v", err)
	}

	got, err := UnmarshalDomain(data)
	if err != nil {
		t.Fatalf("UnmarshalDomain: %v", err)
	}

	if len(got.Nodes) != 3 || len(got.Relationships) != 3 {
		t.Fatalf("round trip lost data: %d nodes, %d relationships", len(got.Nodes), len(got.Relationships))
	}

	again, err := MarshalDomain(got)
	if err != nil {
		t.Fatalf("second MarshalDomain: %v", err)
	}
	if string(data) != string(again) {
		t.Error("round trip is not byte-identical")
	}
}

func TestUnmarshalDomainRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "duplicate node",
			json: `{"nodes":[{"id":"a"},{"id":"a"}]}`,
			want: "duplicate",
		},
		{
			name: "missing id",
			json: `{"nodes":[{"name":"x"}]}`,
			want: "missing id",
		},
		{
			name: "dangling relationship",
			json: `{"nodes":[{"id":"a"}],"relationships":[{"source":"a","target":"b","type":"import"}]}`,
			want: "unknown target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDomain([]byte(tt.json))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestDomainFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domain.json")
	if err := WriteDomainFile(testDomain(), path); err != nil {
		t.Fatalf("WriteDomainFile: %v", err)
	}

	got, err := ReadDomainFile(path)
	if err != nil {
		t.Fatalf("ReadDomainFile: %v", err)
	}
	if got.Node("auth") == nil {
		t.Error("auth node missing after file round trip")
	}
}

func TestTouches(t *testing.T) {
	rel := DomainRelationship{Source: "a", Target: "b", Type: RelationImport}

	if !rel.Touches("a") || !rel.Touches("b") {
		t.Error("Touches should match both endpoints")
	}
	if rel.Touches("c") {
		t.Error("Touches should not match other ids")
	}
	if rel.Touches("") {
		t.Error("Touches with empty id should be false")
	}
}

package labels

import "testing"

func TestNewTagBuilder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		stackName string
	}{
		{"simple stack name", "orders-kafka"},
		{"single word", "production"},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tags := NewTagBuilder(tt.stackName).Build()

			if tags[KeyStack] != tt.stackName {
				t.Errorf("expected %s=%q, got %q", KeyStack, tt.stackName, tags[KeyStack])
			}
			if tags[KeyManagedBy] != ManagedByMskstack {
				t.Errorf("expected %s=%q, got %q", KeyManagedBy, ManagedByMskstack, tags[KeyManagedBy])
			}
			if _, ok := tags[KeyVersion]; ok {
				t.Errorf("expected no %s tag", KeyVersion)
			}
		})
	}
}

func TestWithVersion(t *testing.T) {
	t.Parallel()
	tags := NewTagBuilder("orders-kafka").WithVersion("1.2.3").Build()
	if tags[KeyVersion] != "1.2.3" {
		t.Errorf("expected %s=1.2.3, got %q", KeyVersion, tags[KeyVersion])
	}

	tags = NewTagBuilder("orders-kafka").WithVersion("").Build()
	if _, ok := tags[KeyVersion]; ok {
		t.Errorf("expected no %s tag for an empty version", KeyVersion)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()
	tags := NewTagBuilder("orders-kafka").Merge(map[string]string{
		"team":            "payments",
		"aws:createdBy":   "someone",
		KeyStack:          "other",
		"mskstack:custom": "x",
	}).Build()

	if tags["team"] != "payments" {
		t.Errorf("expected team=payments, got %q", tags["team"])
	}
	if _, ok := tags["aws:createdBy"]; ok {
		t.Error("expected aws: tags to be dropped")
	}
	if tags[KeyStack] != "orders-kafka" {
		t.Errorf("expected user tags not to replace %s, got %q", KeyStack, tags[KeyStack])
	}
	if _, ok := tags["mskstack:custom"]; ok {
		t.Error("expected mskstack: tags from the user to be dropped")
	}
	if len(tags) != 3 {
		t.Errorf("expected 3 tags, got %d: %v", len(tags), tags)
	}
}

func TestBuild_ReturnsCopy(t *testing.T) {
	t.Parallel()
	b := NewTagBuilder("orders-kafka")
	tags := b.Build()
	tags["team"] = "payments"

	if _, ok := b.Build()["team"]; ok {
		t.Error("expected Build to return a copy")
	}
}

func TestIsManaged(t *testing.T) {
	t.Parallel()
	if !IsManaged(KeyStack) || !IsManaged(KeyVersion) {
		t.Error("expected mskstack keys to be managed")
	}
	if IsManaged("team") {
		t.Error("expected team not to be managed")
	}
}

package match

import "testing"

func TestMatch_AddSourceDeduplicates(t *testing.T) {
	var m Match
	if !m.AddSource(Source{Provider: "alpha", ID: "ars-che"}) {
		t.Fatalf("first source should be added")
	}
	if m.AddSource(Source{Provider: "alpha", ID: "ars-che"}) {
		t.Fatalf("duplicate source should be rejected")
	}
	if m.AddSource(Source{Provider: " alpha ", ID: "ars-che "}) {
		t.Fatalf("whitespace variant of duplicate should be rejected")
	}
	if m.AddSource(Source{Provider: "", ID: "x"}) {
		t.Fatalf("source without provider should be rejected")
	}
	if !m.AddSource(Source{Provider: "bravo", ID: "ars-che"}) {
		t.Fatalf("same id under another provider is a distinct source")
	}
	if len(m.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(m.Sources))
	}
}

func TestDedupeSources_PreservesOrder(t *testing.T) {
	got := DedupeSources([]Source{
		{Provider: "delta", ID: "1"},
		{Provider: "alpha", ID: "1"},
		{Provider: "delta", ID: "1"},
		{Provider: "alpha", ID: ""},
	})
	if len(got) != 2 || got[0].Provider != "delta" || got[1].Provider != "alpha" {
		t.Fatalf("unexpected dedupe result %+v", got)
	}
}

func TestNormalizeSport(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Soccer", want: SportFootball},
		{in: "UFC", want: SportFight},
		{in: "motor_sports", want: SportMotorSports},
		{in: "Formula-1", want: SportMotorSports},
		{in: "", want: SportOther},
		{in: "Curling", want: "curling"},
	}
	for _, tc := range tests {
		if got := NormalizeSport(tc.in); got != tc.want {
			t.Fatalf("NormalizeSport(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidTeamName(t *testing.T) {
	valid := []string{"Arsenal", "PSG", "Man Utd", "AC"}
	invalid := []string{"", " ", "X", "TBD", "tba", "Team 1", "  team   2 ", "Winner", "N/A"}

	for _, name := range valid {
		if !ValidTeamName(name) {
			t.Fatalf("ValidTeamName(%q) = false, want true", name)
		}
	}
	for _, name := range invalid {
		if ValidTeamName(name) {
			t.Fatalf("ValidTeamName(%q) = true, want false", name)
		}
	}
}

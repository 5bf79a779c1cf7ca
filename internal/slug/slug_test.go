package slug

import "testing"

func TestMake(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Anna Karenina":            "anna-karenina",
		"  Marie   Curie  ":        "marie-curie",
		"Édith Piaf":               "edith-piaf",
		"Анна Ахматова":            "anna-ahmatova",
		"Rock'n'Roll -- legends!":  "rocknroll-legends",
		"already-a_slug":           "already-a_slug",
		"!!!":                      "",
		"Ada Lovelace (1815-1852)": "ada-lovelace-1815-1852",
	}

	for input, expected := range cases {
		if got := Make(input); got != expected {
			t.Errorf("Make(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !Valid("anna-karenina_2") {
		t.Fatalf("expected slug to be valid")
	}

	for _, value := range []string{"", "anna karenina", "anna/karenina", "анна"} {
		if Valid(value) {
			t.Errorf("expected %q to be invalid", value)
		}
	}
}

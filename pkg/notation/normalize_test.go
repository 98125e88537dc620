package notation

import (
	"sync"
	"testing"
)

func defaultNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	rules, err := CompileRules(DefaultRules())
	if err != nil {
		t.Fatalf("CompileRules: %v", err)
	}
	return New(rules)
}

func TestFoldSpace(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"  FAUST ", "faust"},
		{"Faust", "faust"},
		{"Sol   Badguy", "sol badguy"},
		{"\tJack-O\n", "jack-o"},
		{"ばいけん", "ばいけん"},
		{"ＢＡＩＫＥＮ", "baiken"},
		{"Élodie", "Élodie"},
		{"６Ｈ", "6h"},
		{"ｶﾀ", "ｶﾀ"},
		{"カタ", "カタ"},
		{"Ｓｏｌ　Ｂａｄｇｕｙ", "sol badguy"},
		{"", ""},
	}
	for _, tt := range tests {
		got := FoldSpace(tt.input)
		if got != tt.want {
			t.Errorf("FoldSpace(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStripOuterBrackets(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"[5P]", "5P"},
		{"[[5P]]", "5P"},
		{"[ 5P ]", "5P"},
		{"(Hold)", "Hold"},
		{"[4]6S", "[4]6S"},
		{"[4]6[S]", "[4]6[S]"},
		{"214[H]", "214[H]"},
		{"[5P)", "[5P)"},
		{"[]", ""},
		{"[", "["},
		{"", ""},
	}
	for _, tt := range tests {
		got := StripOuterBrackets(tt.input)
		if got != tt.want {
			t.Errorf("StripOuterBrackets(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeDefaultRules(t *testing.T) {
	n := defaultNormalizer(t)
	tests := []struct {
		input, want string
	}{
		{"6H", "6h"},
		{"6h", "6h"},
		{"  j.H ", "jh"},
		{"jump HS", "jh"},
		{"j.236H", "j236h"},
		{"air 2K", "j2k"},
		{"c.S", "cs"},
		{"close slash", "cs"},
		{"f.S", "fs"},
		{"far s", "fs"},
		{"cr.K", "2k"},
		{"st.HS", "5h"},
		{"qcf K", "236k"},
		{"qcfk", "236k"},
		{"dp HS", "623h"},
		{"236 K", "236k"},
		{"[5P]", "5p"},
		{"[4]6S", "[4]6s"},
		{"214[H]", "214[h]"},
		{"41236HS~HS", "41236h~h"},
		{"236S > 6S", "236s~6s"},
		{"Command  Grab", "command grab"},
		{"ばいけん", "ばいけん"},
		{"The Law is Key, Key is King.", "the law is key, key is king"},
		{"", ""},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeWithoutRules(t *testing.T) {
	n := New(nil)
	tests := []struct {
		input, want string
	}{
		{"  [J.H] ", "j.h"},
		{"Command Grab", "command grab"},
	}
	for _, tt := range tests {
		got := n.Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeIdempotentExamples(t *testing.T) {
	n := defaultNormalizer(t)
	for _, input := range []string{
		"[[j.HS]]", "s.c.k", "c . s", "QCF  HS", "214S~P/K~K", "  ", "]x[", "(([5P]))",
	} {
		once := n.Normalize(input)
		if twice := n.Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", input, twice, once)
		}
	}
}

func TestNormalizeConcurrent(t *testing.T) {
	n := defaultNormalizer(t)
	inputs := map[string]string{}
	for _, in := range []string{"[５Ｈ]", "Tatami Gaeshi", "ｶﾀ", "  Sol   Badguy "} {
		inputs[in] = n.Normalize(in)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				for in, want := range inputs {
					if got := n.Normalize(in); got != want {
						select {
						case errs <- in + " -> " + got + ", want " + want:
						default:
						}
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("Normalize under concurrency: %s", e)
	}
}

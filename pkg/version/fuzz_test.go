package version

import "testing"

func FuzzParseVersion(f *testing.F) {
	for _, seed := range []string{"4", "4.1", "v4.1.2", "", ".", "1.", "1..2", "-1", "1.-2", "a.b", "1.2.3.4", "4.1-rc1"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v, err := ParseVersion(input)
		if err != nil {
			return
		}
		if v.Precision < 1 || v.Precision > 3 {
			t.Errorf("ParseVersion(%q) precision %d out of range", input, v.Precision)
		}
		if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
			t.Errorf("ParseVersion(%q) produced negative component: %+v", input, v)
		}
		if v.Compare(v) != 0 {
			t.Errorf("version %+v does not compare equal to itself", v)
		}
	})
}

package layer

import "regexp"

// PropRe, UnivRe, and FormRe are regex-filtered lift variants: each
// enumerates its candidate rows via the same prefix walk
// iter_prop_rows/iter_univ_rows/iter_form_rows would use, then filters by a
// compiled regex applied to the raw decoded value bytes.
type PropRe struct {
	Form    string
	Prop    string
	Pattern string
}

type UnivRe struct {
	Prop    string
	Pattern string
}

type FormRe struct {
	Form    string
	Pattern string
}

func compileRe(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re, nil
}

// filterRows keeps only the rows whose Valu matches re.
func filterRows(rows []Row, re *regexp.Regexp) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if re.Match(r.Valu) {
			out = append(out, r)
		}
	}
	return out
}

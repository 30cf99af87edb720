package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// atTag matches <a:t>text</a:t> with any attributes.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX returns one page per slide, ordered by slide number.
// Gaps in slide numbering become empty pages.
func extractPPTX(content []byte) ([]string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return nil, err
	}
	slides := make(map[int]string)
	var numbers []int
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		xml, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %w", err)
		}
		slides[n] = joinTextRuns(atTag, xml)
		numbers = append(numbers, n)
	}
	if len(numbers) == 0 {
		return nil, nil
	}
	sort.Ints(numbers)
	pages := make([]string, numbers[len(numbers)-1])
	for _, n := range numbers {
		pages[n-1] = slides[n]
	}
	return pages, nil
}

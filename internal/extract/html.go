package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"restituiri/internal"
	"restituiri/internal/util"
)

const (
	cancelledMarker = "Dosar anulat"
	labelNumber     = "Număr:"
	labelDate       = "Data:"
	historyOpen     = "(Istoric:"
)

var rePropertyType = regexp.MustCompile(`\(([^)]+)\)\s*$`)

// ParseDosar turns one case page into dataset rows, one per property address of
// every "Dosar PMB" card. A cancelled case yields no rows.
func ParseDosar(page string) ([]internal.CaseRecord, error) {
	if IsCancelled(page) {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	idx := indexDocument(doc)

	var rows []internal.CaseRecord
	doc.Find("h5.card-title").Each(func(_ int, title *goquery.Selection) {
		if !strings.Contains(title.Text(), "Dosar PMB") {
			return
		}
		block := title.Closest("div.card-body")
		if block.Length() == 0 {
			return
		}
		rows = append(rows, parseCard(idx, block)...)
	})
	return rows, nil
}

// IsCancelled reports whether the page carries the cancelled-case marker.
func IsCancelled(page string) bool {
	return strings.Contains(page, cancelledMarker)
}

func parseCard(idx *docIndex, block *goquery.Selection) []internal.CaseRecord {
	base := internal.CaseRecord{}
	base.CaseNumber, base.CaseDate = numberAndDate(block)

	if notif := notificationColumn(block); notif != nil {
		base.NotificationNumber, base.NotificationDate = numberAndDate(notif)
	}

	blockNode := block.Get(0)

	if h := idx.nextHeading(blockNode, "Solicitan"); h != nil {
		if ol := idx.nextTag(h, "ol"); ol != nil {
			ol.Find("li").Each(func(_ int, li *goquery.Selection) {
				if v := util.CleanText(li.Text()); v != nil {
					base.Requesters = append(base.Requesters, *v)
				}
			})
		}
	}

	var addresses []internal.AddressEntry
	if h := idx.nextHeading(blockNode, "Adrese"); h != nil {
		if ol := idx.nextTag(h, "ol"); ol != nil {
			ol.Find("li").Each(func(_ int, li *goquery.Selection) {
				addresses = append(addresses, parseAddress(li.Text()))
			})
		}
	}

	if h := idx.nextHeading(blockNode, "Soluția la dosar"); h != nil {
		if body := h.Closest("div.card-body"); body.Length() > 0 {
			base.Solution, base.ActHistory = solutionAndHistory(body)
		}
	}

	if len(addresses) == 0 {
		return []internal.CaseRecord{base}
	}
	rows := make([]internal.CaseRecord, 0, len(addresses))
	for _, addr := range addresses {
		row := base
		row.Requesters = append([]string(nil), base.Requesters...)
		row.Address = addr
		row.MultipleAddresses = len(addresses) > 1
		rows = append(rows, row)
	}
	return rows
}

// numberAndDate reads the "Număr:" and "Data:" badges inside sel.
func numberAndDate(sel *goquery.Selection) (*string, *string) {
	var number, date *string
	sel.Find("span.btn").Each(func(_ int, span *goquery.Selection) {
		txt := util.NormalizeSpaces(span.Text())
		switch {
		case strings.HasPrefix(txt, labelNumber):
			number = util.CleanText(strings.TrimPrefix(txt, labelNumber))
		case strings.HasPrefix(txt, labelDate):
			date = util.CleanText(strings.TrimPrefix(txt, labelDate))
		}
	})
	return number, date
}

// notificationColumn finds the sibling column of the case card that mentions "Notificare".
func notificationColumn(block *goquery.Selection) *goquery.Selection {
	col := block.Closest("div.col-sm-6")
	if col.Length() == 0 {
		return nil
	}
	row := col.Parent().Closest("div.row")
	if row.Length() == 0 {
		return nil
	}
	colNode := col.Get(0)
	var found *goquery.Selection
	row.Find("div.col-sm-6").EachWithBreak(func(_ int, sib *goquery.Selection) bool {
		if sib.Get(0) == colNode || !strings.Contains(sib.Text(), "Notificare") {
			return true
		}
		found = sib
		return false
	})
	return found
}

// parseAddress splits "<contemporary> (Istoric: <historical>) (<type>)".
func parseAddress(text string) internal.AddressEntry {
	contemporary := util.NormalizeSpaces(text)
	var entry internal.AddressEntry

	if before, rest, ok := strings.Cut(contemporary, historyOpen); ok {
		if hist, after, ok := strings.Cut(rest, ")"); ok {
			contemporary = util.NormalizeSpaces(before + after)
			entry.Historical = util.CleanText(hist)
		}
	}

	if loc := rePropertyType.FindStringSubmatchIndex(contemporary); loc != nil {
		entry.PropertyType = util.CleanText(contemporary[loc[2]:loc[3]])
		contemporary = strings.TrimSpace(contemporary[:loc[0]])
	}
	entry.Contemporary = util.CleanText(contemporary)
	return entry
}

func solutionAndHistory(body *goquery.Selection) (*string, *string) {
	var parts []string
	body.Find("span.btn").Each(func(_ int, span *goquery.Selection) {
		if v := util.CleanText(span.Text()); v != nil {
			parts = append(parts, *v)
		}
	})
	var solution *string
	if len(parts) > 0 {
		joined := strings.Join(parts, ", ")
		solution = &joined
	}

	var history *string
	if ul := body.Find(`ul[role="list"]`).First(); ul.Length() > 0 {
		var acts []string
		ul.Find("li").Each(func(_ int, li *goquery.Selection) {
			if v := util.CleanText(li.Text()); v != nil {
				acts = append(acts, *v)
			}
		})
		if len(acts) > 0 {
			joined := strings.Join(acts, "; ")
			history = &joined
		}
	}
	return solution, history
}

// docIndex records element positions in document order so sections that follow a card
// can be found without relying on sibling structure.
type docIndex struct {
	doc   *goquery.Document
	nodes []*html.Node
	pos   map[*html.Node]int
}

func indexDocument(doc *goquery.Document) *docIndex {
	all := doc.Find("*")
	idx := &docIndex{doc: doc, nodes: all.Nodes, pos: make(map[*html.Node]int, all.Length())}
	for i, n := range all.Nodes {
		idx.pos[n] = i
	}
	return idx
}

// nextHeading returns the first h5 after from whose text contains needle.
func (d *docIndex) nextHeading(from *html.Node, needle string) *goquery.Selection {
	start, ok := d.pos[from]
	if !ok {
		return nil
	}
	for _, n := range d.nodes[start+1:] {
		if n.Data != "h5" {
			continue
		}
		sel := d.doc.FindNodes(n)
		if strings.Contains(sel.Text(), needle) {
			return sel
		}
	}
	return nil
}

func (d *docIndex) nextTag(from *goquery.Selection, tag string) *goquery.Selection {
	start, ok := d.pos[from.Get(0)]
	if !ok {
		return nil
	}
	for _, n := range d.nodes[start+1:] {
		if n.Data == tag {
			return d.doc.FindNodes(n)
		}
	}
	return nil
}

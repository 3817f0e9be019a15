package extract

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// BlockIndex resolves the document-analysis relationship graph (parent/child,
// key/value, answer links) against a flat, read-only block collection.
type BlockIndex struct {
	blocks []types.Block
	byID   map[string]*types.Block
}

// NewBlockIndex builds the ID lookup for one document's full block
// collection. The collection must already span all result pages.
func NewBlockIndex(blocks []types.Block) *BlockIndex {
	ix := &BlockIndex{
		blocks: blocks,
		byID:   make(map[string]*types.Block, len(blocks)),
	}
	for i := range blocks {
		if blocks[i].Id != nil {
			ix.byID[*blocks[i].Id] = &blocks[i]
		}
	}
	return ix
}

// Len returns the number of blocks in the collection.
func (ix *BlockIndex) Len() int { return len(ix.blocks) }

// Text resolves a block to its text. Leaf blocks return their literal text;
// container blocks concatenate WORD children in relationship-list order, with
// a SELECTED selection element contributing the literal token "X".
func (ix *BlockIndex) Text(b *types.Block) string {
	if b == nil {
		return ""
	}
	if b.Text != nil {
		return *b.Text
	}
	var parts []string
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			child := ix.byID[id]
			if child == nil {
				continue
			}
			switch child.BlockType {
			case types.BlockTypeWord:
				if child.Text != nil {
					parts = append(parts, *child.Text)
				}
			case types.BlockTypeSelectionElement:
				if child.SelectionStatus == types.SelectionStatusSelected {
					parts = append(parts, "X")
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

// cellText concatenates WORD children only; table cells never carry
// selection-element semantics.
func (ix *BlockIndex) cellText(b *types.Block) string {
	var parts []string
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			if child := ix.byID[id]; child != nil && child.BlockType == types.BlockTypeWord && child.Text != nil {
				parts = append(parts, *child.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}

// DocumentText joins all LINE blocks in reading order (the upstream service
// pre-sorts the collection) for regex fallbacks over the full document.
func (ix *BlockIndex) DocumentText() string {
	var parts []string
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType == types.BlockTypeLine && b.Text != nil {
			parts = append(parts, *b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// KVPairs is an insertion-ordered map of lowercased form keys to values.
// Duplicate keys are last-write-wins, keeping the original position.
type KVPairs struct {
	keys   []string
	values map[string]string
}

func NewKVPairs() *KVPairs {
	return &KVPairs{values: make(map[string]string)}
}

func (kv *KVPairs) set(key, value string) {
	if _, ok := kv.values[key]; !ok {
		kv.keys = append(kv.keys, key)
	}
	kv.values[key] = value
}

func (kv *KVPairs) Get(key string) (string, bool) {
	v, ok := kv.values[key]
	return v, ok
}

func (kv *KVPairs) Len() int { return len(kv.keys) }

// Each visits pairs in insertion order until fn returns false.
func (kv *KVPairs) Each(fn func(key, value string) bool) {
	for _, k := range kv.keys {
		if !fn(k, kv.values[k]) {
			return
		}
	}
}

// KeyValuePairs partitions KEY_VALUE_SET blocks into key and value blocks,
// follows VALUE relationships and emits trimmed pairs. Keys whose paired
// value is missing or resolves to empty text are dropped entirely, so
// downstream searches never match an empty value.
func (ix *BlockIndex) KeyValuePairs() *KVPairs {
	kv := NewKVPairs()
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType != types.BlockTypeKeyValueSet || !hasEntityType(b, types.EntityTypeKey) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(ix.Text(b)))
		value := strings.TrimSpace(ix.Text(ix.valueBlock(b)))
		if key != "" && value != "" {
			kv.set(key, value)
		}
	}
	return kv
}

func (ix *BlockIndex) valueBlock(key *types.Block) *types.Block {
	for _, rel := range key.Relationships {
		if rel.Type != types.RelationshipTypeValue {
			continue
		}
		for _, id := range rel.Ids {
			vb := ix.byID[id]
			if vb != nil && vb.BlockType == types.BlockTypeKeyValueSet && !hasEntityType(vb, types.EntityTypeKey) {
				return vb
			}
		}
	}
	return nil
}

func hasEntityType(b *types.Block, et types.EntityType) bool {
	for _, t := range b.EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}

// BuildTableGrid inserts every CELL block into a sparse per-page grid keyed
// by (row index, column index), defaulting the page to 1 when absent.
func (ix *BlockIndex) BuildTableGrid() TableGrid {
	grid := TableGrid{}
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType != types.BlockTypeCell || b.RowIndex == nil || b.ColumnIndex == nil {
			continue
		}
		page := int32(1)
		if b.Page != nil {
			page = *b.Page
		}
		grid.page(page).Set(*b.RowIndex, *b.ColumnIndex, ix.cellText(b))
	}
	return grid
}

// QueryResult is one service-answered question.
type QueryResult struct {
	Query      string  `json:"query"`
	Alias      string  `json:"alias"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// QueryAnswers resolves QUERY blocks and their ANSWER relationships.
func (ix *BlockIndex) QueryAnswers() []QueryResult {
	var results []QueryResult
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType != types.BlockTypeQuery || b.Query == nil {
			continue
		}
		qr := QueryResult{
			Query: aws.ToString(b.Query.Text),
			Alias: aws.ToString(b.Query.Alias),
		}
		for _, rel := range b.Relationships {
			if rel.Type != types.RelationshipTypeAnswer {
				continue
			}
			for _, id := range rel.Ids {
				if ans := ix.byID[id]; ans != nil {
					qr.Answer = ix.Text(ans)
					if ans.Confidence != nil {
						qr.Confidence = float64(*ans.Confidence)
					}
				}
			}
		}
		results = append(results, qr)
	}
	return results
}

// FormField is one key/value association with the key block's confidence,
// used for report rendering.
type FormField struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// FormFields lists all key/value associations, including those with empty
// values (reports show them; the resolver map does not).
func (ix *BlockIndex) FormFields() []FormField {
	var fields []FormField
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType != types.BlockTypeKeyValueSet || !hasEntityType(b, types.EntityTypeKey) {
			continue
		}
		key := strings.TrimSpace(ix.Text(b))
		if key == "" {
			continue
		}
		f := FormField{Key: key, Value: strings.TrimSpace(ix.Text(ix.valueBlock(b)))}
		if b.Confidence != nil {
			f.Confidence = float64(*b.Confidence)
		}
		fields = append(fields, f)
	}
	return fields
}

// LayoutElement is one classified layout region.
type LayoutElement struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Layout groups layout regions by their structured block subtype.
type Layout struct {
	Titles         []LayoutElement `json:"titles"`
	Headers        []LayoutElement `json:"headers"`
	SectionHeaders []LayoutElement `json:"section_headers"`
	Paragraphs     []LayoutElement `json:"paragraphs"`
	Lists          []LayoutElement `json:"lists"`
	PageNumbers    []LayoutElement `json:"page_numbers"`
	Footers        []LayoutElement `json:"footers"`
	Figures        []LayoutElement `json:"figures"`
	KeyValueAreas  []LayoutElement `json:"key_value_areas"`
}

// LayoutElements categorizes layout blocks by the structured BlockType tag.
// The subtype is never inferred from a serialized form.
func (ix *BlockIndex) LayoutElements() Layout {
	var layout Layout
	for i := range ix.blocks {
		b := &ix.blocks[i]
		el := LayoutElement{Text: ix.Text(b)}
		if b.Confidence != nil {
			el.Confidence = float64(*b.Confidence)
		}
		switch b.BlockType {
		case types.BlockTypeLayoutTitle:
			layout.Titles = append(layout.Titles, el)
		case types.BlockTypeLayoutHeader:
			layout.Headers = append(layout.Headers, el)
		case types.BlockTypeLayoutSectionHeader:
			layout.SectionHeaders = append(layout.SectionHeaders, el)
		case types.BlockTypeLayoutText:
			layout.Paragraphs = append(layout.Paragraphs, el)
		case types.BlockTypeLayoutList:
			layout.Lists = append(layout.Lists, el)
		case types.BlockTypeLayoutPageNumber:
			layout.PageNumbers = append(layout.PageNumbers, el)
		case types.BlockTypeLayoutFooter:
			layout.Footers = append(layout.Footers, el)
		case types.BlockTypeLayoutFigure:
			layout.Figures = append(layout.Figures, el)
		case types.BlockTypeLayoutKeyValue:
			layout.KeyValueAreas = append(layout.KeyValueAreas, el)
		}
	}
	return layout
}

// Empty reports whether no layout regions were detected.
func (l Layout) Empty() bool {
	return len(l.Titles) == 0 && len(l.Headers) == 0 && len(l.SectionHeaders) == 0 &&
		len(l.Paragraphs) == 0 && len(l.Lists) == 0 && len(l.PageNumbers) == 0 &&
		len(l.Footers) == 0 && len(l.Figures) == 0 && len(l.KeyValueAreas) == 0
}

// Signature is one detected signature region.
type Signature struct {
	Page       int32           `json:"page"`
	Confidence float64         `json:"confidence"`
	Geometry   *types.Geometry `json:"-"`
}

// Signatures lists SIGNATURE blocks with page and confidence.
func (ix *BlockIndex) Signatures() []Signature {
	var sigs []Signature
	for i := range ix.blocks {
		b := &ix.blocks[i]
		if b.BlockType != types.BlockTypeSignature {
			continue
		}
		sig := Signature{Page: 1, Geometry: b.Geometry}
		if b.Page != nil {
			sig.Page = *b.Page
		}
		if b.Confidence != nil {
			sig.Confidence = float64(*b.Confidence)
		}
		sigs = append(sigs, sig)
	}
	return sigs
}

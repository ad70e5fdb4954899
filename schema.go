// Package docgen renders declarative JSON document descriptors into paginated,
// styled PDF files, optionally overlaid with interactive form fields.
//
// A descriptor carries an ordered sequence of content blocks (headings,
// paragraphs, lists, key/value strips, spacers, images, static form previews)
// that are flowed onto pages, plus an optional list of widgets placed at
// absolute coordinates after layout. Everything lives for the duration of one
// Render call; the engine keeps no state between requests.
//
// Example JSON:
//
//	{
//	  "filename": "activity_report",
//	  "title": "Activity Report",
//	  "content_blocks": [
//	    {"type": "heading", "content": "Summary"},
//	    {"type": "paragraph", "content": "Everything went fine."},
//	    {"type": "bullet_list", "content": ["first", "second"]}
//	  ],
//	  "widgets": [
//	    {"type": "text", "name": "reviewer", "page": 1,
//	     "x_mm": 20, "y_mm": 250, "w_mm": 80, "h_mm": 10}
//	  ]
//	}
package docgen

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Align is a horizontal alignment: "L", "C" or "R".
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

func (a Align) valid() bool {
	return a == "" || a == AlignLeft || a == AlignCenter || a == AlignRight
}

// Block type tags. The tag determines the only legal payload shape; anything
// else is rejected at decode time.
const (
	BlockHeading       = "heading"
	BlockSubheading    = "subheading"
	BlockParagraph     = "paragraph"
	BlockBulletList    = "bullet_list"
	BlockKeyValue      = "key_value"
	BlockSpacer        = "spacer"
	BlockImage         = "image"
	BlockFormInput     = "form_input"
	BlockFormChecklist = "form_checklist"
	BlockFormRadio     = "form_radiogroup"
)

// Widget type tags.
const (
	WidgetText      = "text"
	WidgetCheckbox  = "checkbox"
	WidgetRadio     = "radio"
	WidgetSignature = "signature"
)

// RGB is a color triple with each channel in 0-255.
type RGB struct {
	R, G, B int
}

// UnmarshalJSON accepts the wire form [r, g, b].
func (c *RGB) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("color must be an [R,G,B] array: %w", err)
	}
	if len(v) != 3 {
		return fmt.Errorf("color must have exactly 3 components, got %d", len(v))
	}
	for _, ch := range v {
		if ch < 0 || ch > 255 {
			return fmt.Errorf("color component %d out of range 0-255", ch)
		}
	}
	c.R, c.G, c.B = v[0], v[1], v[2]
	return nil
}

// MarshalJSON emits the wire form [r, g, b].
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{c.R, c.G, c.B})
}

// BlockStyle carries optional per-block styling.
type BlockStyle struct {
	BackgroundColor *RGB `json:"background_color,omitempty"`
}

// KV is one key/value pair of a key_value block, in document order.
type KV struct {
	Key   string
	Value string
}

// ImageSpec describes the source and placement of an image block. Exactly one
// of Src or Base64Data must be set.
type ImageSpec struct {
	Src        string  `json:"src,omitempty"`         // http(s) URL or sandboxed local path
	Base64Data string  `json:"base64_data,omitempty"` // raw base64 or data: URL
	Width      float64 `json:"width,omitempty"`       // mm
	Height     float64 `json:"height,omitempty"`      // mm
	Align      Align   `json:"align,omitempty"`       // default "C"
}

func (s *ImageSpec) validate() error {
	if (s.Src == "") == (s.Base64Data == "") {
		return fmt.Errorf("image requires exactly one of 'src' or 'base64_data'")
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("image width/height must not be negative")
	}
	if !s.Align.valid() {
		return fmt.Errorf("image align must be L, C or R")
	}
	return nil
}

// FormPreview is the payload of the static form-preview block variants. The
// rendered artwork is ordinary page content, not interactive.
type FormPreview struct {
	Label   string   `json:"label"`
	Lines   int      `json:"lines,omitempty"`   // form_input: ruled boxes, default 1
	Options []string `json:"options,omitempty"` // form_checklist / form_radiogroup
	Columns int      `json:"columns,omitempty"` // grid columns, default 2
}

// ContentBlock is one unit of flowed document content. Its Type tag selects
// which payload field is populated; the zero values of the others are ignored.
type ContentBlock struct {
	Type       string
	Style      *BlockStyle
	LineHeight float64 // mm, 0 means the variant default
	Align      Align   // paragraph only

	Text     string       // heading, subheading, paragraph
	Items    []string     // bullet_list
	Pairs    []KV         // key_value, insertion order preserved
	SpacerMM int          // spacer
	Image    *ImageSpec   // image
	Form     *FormPreview // form_input, form_checklist, form_radiogroup
}

// UnmarshalJSON decodes the tagged union, rejecting unknown tags and payloads
// whose shape does not match the tag.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       string          `json:"type"`
		Content    json.RawMessage `json:"content"`
		Style      *BlockStyle     `json:"style,omitempty"`
		LineHeight float64         `json:"line_height,omitempty"`
		Align      Align           `json:"align,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.LineHeight < 0 {
		return fmt.Errorf("block %q: line_height must not be negative", raw.Type)
	}
	if !raw.Align.valid() {
		return fmt.Errorf("block %q: align must be L, C or R", raw.Type)
	}

	*b = ContentBlock{
		Type:       raw.Type,
		Style:      raw.Style,
		LineHeight: raw.LineHeight,
		Align:      raw.Align,
	}

	fail := func(want string, err error) error {
		return fmt.Errorf("block %q requires %s payload: %w", raw.Type, want, err)
	}

	switch raw.Type {
	case BlockHeading, BlockSubheading, BlockParagraph:
		if err := json.Unmarshal(raw.Content, &b.Text); err != nil {
			return fail("a string", err)
		}
	case BlockBulletList:
		if err := json.Unmarshal(raw.Content, &b.Items); err != nil {
			return fail("a string array", err)
		}
	case BlockKeyValue:
		pairs, err := decodeOrderedPairs(raw.Content)
		if err != nil {
			return fail("a string map", err)
		}
		b.Pairs = pairs
	case BlockSpacer:
		if err := json.Unmarshal(raw.Content, &b.SpacerMM); err != nil {
			return fail("an integer (mm)", err)
		}
		if b.SpacerMM < 0 {
			return fmt.Errorf("block %q: spacer must not be negative", raw.Type)
		}
	case BlockImage:
		var spec ImageSpec
		if err := json.Unmarshal(raw.Content, &spec); err != nil {
			return fail("an image object", err)
		}
		if err := spec.validate(); err != nil {
			return fmt.Errorf("block %q: %w", raw.Type, err)
		}
		b.Image = &spec
	case BlockFormInput, BlockFormChecklist, BlockFormRadio:
		var form FormPreview
		if err := json.Unmarshal(raw.Content, &form); err != nil {
			return fail("a form object", err)
		}
		if form.Lines < 0 || form.Columns < 0 {
			return fmt.Errorf("block %q: lines/columns must not be negative", raw.Type)
		}
		b.Form = &form
	case "":
		return fmt.Errorf("content block is missing a 'type' tag")
	default:
		return fmt.Errorf("unknown content block type %q", raw.Type)
	}
	return nil
}

// decodeOrderedPairs walks the JSON object token by token so that the original
// key order survives into the rendered output.
func decodeOrderedPairs(data json.RawMessage) ([]KV, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}
	var pairs []KV
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := keyTok.(string)
		var val string
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("value of %q must be a string: %w", key, err)
		}
		pairs = append(pairs, KV{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Widget is an absolutely-positioned interactive form field overlaid on a
// specific page after layout. Radio widgets sharing a Name form one group.
type Widget struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Page int     `json:"page"` // 1-based
	X    float64 `json:"x_mm"`
	Y    float64 `json:"y_mm"` // from the top edge
	W    float64 `json:"w_mm"`
	H    float64 `json:"h_mm"`

	Value       string  `json:"value,omitempty"`        // text
	FontSize    float64 `json:"font_size,omitempty"`    // text
	Required    bool    `json:"required,omitempty"`     // text, advisory only
	Checked     bool    `json:"checked,omitempty"`      // checkbox
	ExportValue string  `json:"export_value,omitempty"` // radio
}

func (w *Widget) validate() error {
	switch w.Type {
	case WidgetText, WidgetCheckbox, WidgetRadio, WidgetSignature:
	case "":
		return fmt.Errorf("widget is missing a 'type' tag")
	default:
		return fmt.Errorf("unknown widget type %q", w.Type)
	}
	if w.Name == "" {
		return fmt.Errorf("widget (%s) requires a 'name'", w.Type)
	}
	if w.Page < 1 {
		return fmt.Errorf("widget %q: page must be 1-based", w.Name)
	}
	if w.W <= 0 || w.H <= 0 {
		return fmt.Errorf("widget %q: w_mm and h_mm must be positive", w.Name)
	}
	if w.Type == WidgetRadio && w.ExportValue == "" {
		return fmt.Errorf("radio widget %q requires an 'export_value'", w.Name)
	}
	return nil
}

// Options control page geometry, metadata and rendering policy.
type Options struct {
	Author            string    `json:"author,omitempty"`
	Subject           string    `json:"subject,omitempty"`
	Keywords          string    `json:"keywords,omitempty"`
	MarginsMM         []float64 `json:"margins_mm,omitempty"` // [left], [left,top] or [left,top,right]
	PageNumbers       *bool     `json:"page_numbers,omitempty"`        // default true
	TitleAlign        Align     `json:"title_align,omitempty"`         // default "C"
	ThemeTextColor    *RGB      `json:"theme_text_color,omitempty"`
	AllowRemoteImages *bool     `json:"allow_remote_images,omitempty"` // default true
}

func (o *Options) pageNumbers() bool {
	return o == nil || o.PageNumbers == nil || *o.PageNumbers
}

func (o *Options) allowRemoteImages() bool {
	return o == nil || o.AllowRemoteImages == nil || *o.AllowRemoteImages
}

func (o *Options) titleAlign() Align {
	if o == nil || o.TitleAlign == "" {
		return AlignCenter
	}
	return o.TitleAlign
}

func (o *Options) validate() error {
	if o == nil {
		return nil
	}
	if n := len(o.MarginsMM); n > 3 {
		return fmt.Errorf("margins_mm accepts 1 (left), 2 (left,top) or 3 (left,top,right) values, got %d", n)
	}
	for _, m := range o.MarginsMM {
		if m < 0 {
			return fmt.Errorf("margins_mm values must not be negative")
		}
	}
	if !o.TitleAlign.valid() {
		return fmt.Errorf("title_align must be L, C or R")
	}
	return nil
}

// margins returns left, top and right margins. One value applies everywhere,
// a missing right mirrors left.
func (o *Options) margins() (left, top, right float64, ok bool) {
	if o == nil || len(o.MarginsMM) == 0 {
		return 0, 0, 0, false
	}
	left = o.MarginsMM[0]
	top = left
	right = left
	if len(o.MarginsMM) >= 2 {
		top = o.MarginsMM[1]
	}
	if len(o.MarginsMM) == 3 {
		right = o.MarginsMM[2]
	}
	return left, top, right, true
}

// DocumentDescriptor is the top-level render request.
type DocumentDescriptor struct {
	Filename      string         `json:"filename"`
	Title         string         `json:"title"`
	ContentBlocks []ContentBlock `json:"content_blocks"`
	Options       *Options       `json:"options,omitempty"`
	Widgets       []Widget       `json:"widgets,omitempty"`
}

// ParseDescriptor decodes and validates a JSON descriptor. Any shape problem
// is reported as a KindSchemaInvalid error.
func ParseDescriptor(data []byte) (*DocumentDescriptor, error) {
	var doc DocumentDescriptor
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Kind: KindSchemaInvalid, Block: -1, Err: err}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the cross-field invariants that UnmarshalJSON cannot see.
func (d *DocumentDescriptor) Validate() error {
	invalid := func(err error) error {
		return &Error{Kind: KindSchemaInvalid, Block: -1, Err: err}
	}
	if d.Filename == "" {
		return invalid(fmt.Errorf("'filename' is required"))
	}
	if d.Title == "" {
		return invalid(fmt.Errorf("'title' is required"))
	}
	if err := d.Options.validate(); err != nil {
		return invalid(err)
	}
	for i := range d.Widgets {
		if err := d.Widgets[i].validate(); err != nil {
			return invalid(err)
		}
	}
	return nil
}

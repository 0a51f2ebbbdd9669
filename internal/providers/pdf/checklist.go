package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateChecklist(ctx context.Context, data ChecklistData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Pending readings", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(16,
		col.New(8).Add(
			text.New(data.SiteName, props.Text{Style: fontstyle.Bold}),
			text.New("Window: "+data.Window, props.Text{Top: 5}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 9}),
		),
		col.New(4),
	)

	for _, warning := range data.Warnings {
		m.AddRow(6,
			text.NewCol(12, "! "+warning, props.Text{Size: 9, Style: fontstyle.Italic}),
		)
	}

	for _, section := range data.Sections {
		m.AddRow(10,
			text.NewCol(12, section.Date, props.Text{
				Size:  12,
				Style: fontstyle.Bold,
				Top:   3,
			}),
		)

		m.AddRow(8,
			text.NewCol(2, "Code", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(4, "Equipment", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Hour meter", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Odometer", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Operator", props.Text{Style: fontstyle.Bold, Size: 9}),
		)

		for _, entry := range section.Entries {
			name := entry.Name
			if entry.Category != "" {
				name += " (" + entry.Category + ")"
			}
			// The counter and operator columns stay blank; this page goes
			// on a clipboard and is filled in by hand.
			m.AddRow(9,
				text.NewCol(2, entry.Code, props.Text{Size: 9}),
				text.NewCol(4, name, props.Text{Size: 9}),
				text.NewCol(2, "__________", props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, "__________", props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, "__________", props.Text{Size: 9}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

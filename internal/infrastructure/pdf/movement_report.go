// Package pdf genera el reporte de auditoría de un documento: todas las líneas
// que el log registró para su número (INSERT, ADJUST y DELETE) y el neto vigente.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: N° Documento + Tipo  │  Fecha de emisión + QR      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Fecha | Etiqueta | Producto | Bodega | Cant | Costo │
//	│  ─────────────────────────────────────────────────────────  │
//	│  NETO VIGENTE: una fila por clave después del último DELETE │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"sort"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	ledger "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

var _ inventory.MovementReportRenderer = (*MovementReportRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDelete  = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// MovementReportRenderer implementa inventory.MovementReportRenderer usando Maroto v2.
type MovementReportRenderer struct {
	now func() time.Time
}

// NewMovementReportRenderer construye el generador.
func NewMovementReportRenderer() *MovementReportRenderer {
	return &MovementReportRenderer{now: time.Now}
}

// RenderMovementReport genera el PDF y devuelve sus bytes.
func (g *MovementReportRenderer) RenderMovementReport(
	_ context.Context,
	businessNumber string,
	lines []entity.MovementLine,
) ([]byte, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("pdf: documento %s sin líneas", businessNumber)
	}
	sorted := append([]entity.MovementLine(nil), lines...)
	ledger.SortHistory(sorted)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Movimientos "+businessNumber, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(businessNumber, sorted[0].MovementType, g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(sorted)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(netRows(ledger.NetByKey(ledger.ActiveLines(sorted)))...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(businessNumber string, movementType entity.MovementType, generatedAt time.Time) core.Row {
	return row.New(24).Add(
		col.New(8).Add(
			text.New("HISTORIAL DE MOVIMIENTOS", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(businessNumber, props.Text{
				Style: fontstyle.Bold, Size: 14, Top: 6,
			}),
			text.New("Tipo: "+string(movementType), props.Text{
				Size: 8, Top: 14, Color: colorGray,
			}),
			text.New("Generado: "+generatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Top: 19, Color: colorGray,
			}),
		),
		col.New(4).Add(code.NewQr(businessNumber, props.Rect{Percent: 90, Center: true})),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Fecha", 2, align.Left),
		h("Etiqueta", 1, align.Center),
		h("Producto", 3, align.Left),
		h("Bodega / Ubic.", 2, align.Left),
		h("Cantidad", 2, align.Right),
		h("Costo unit.", 2, align.Right),
	)
}

func tableDetailRows(lines []entity.MovementLine) []core.Row {
	out := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		style := props.Text{Size: 8, Top: 1, Left: 1, Right: 1}
		if l.OperationTag == entity.OperationDelete {
			style.Color = colorDelete
		}
		cell := func(s string, a align.Type) core.Component {
			p := style
			p.Align = a
			return text.New(s, p)
		}
		product := l.ProductID
		if l.BatchNumber != "" {
			product += " (lote " + l.BatchNumber + ")"
		}
		out = append(out, row.New(6).Add(
			col.New(2).Add(cell(l.OperationAt.Format("02/01/06 15:04"), align.Left)),
			col.New(1).Add(cell(string(l.OperationTag), align.Center)),
			col.New(3).Add(cell(product, align.Left)),
			col.New(2).Add(cell(location(l.Key()), align.Left)),
			col.New(2).Add(cell(l.SignedQuantity.String(), align.Right)),
			col.New(2).Add(cell(costOrDash(l.UnitCost), align.Right)),
		))
	}
	return out
}

func netRows(net map[entity.BalanceKey]decimal.Decimal) []core.Row {
	keys := make([]entity.BalanceKey, 0, len(net))
	for k, v := range net {
		if !v.IsZero() {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := []core.Row{
		row.New(7).Add(col.New(12).Add(text.New("NETO VIGENTE DEL DOCUMENTO", props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2,
		}))),
	}
	if len(keys) == 0 {
		rows = append(rows, row.New(6).Add(col.New(12).Add(text.New(
			"Sin efecto vigente: el documento fue borrado o sus líneas se compensaron.",
			props.Text{Size: 8, Color: colorGray, Top: 1},
		))))
		return rows
	}
	for _, k := range keys {
		rows = append(rows, row.New(6).Add(
			col.New(6).Add(text.New(k.ProductID, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(3).Add(text.New(location(k), props.Text{Size: 8, Top: 1})),
			col.New(3).Add(text.New(net[k].String(), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 1, Right: 1,
			})),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func location(k entity.BalanceKey) string {
	if k.LocationID == "" {
		return k.WarehouseID
	}
	return k.WarehouseID + " / " + k.LocationID
}

func costOrDash(c *decimal.Decimal) string {
	if c == nil {
		return "—"
	}
	return c.StringFixed(2)
}

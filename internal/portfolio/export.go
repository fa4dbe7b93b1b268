package portfolio

import (
	"encoding/csv"
	"io"
	"strconv"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/pkg/utils"
)

// utf8BOM lets spreadsheet applications pick the right character decoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the portfolio as semicolon-delimited text with a UTF-8
// byte-order marker, matching the spreadsheet-friendly export format:
// comma decimal separators and "Sin datos" for symbols without a quote.
// It refuses when there are no holdings or no quotes to report.
func WriteCSV(w io.Writer, holdings []models.Holding, quotesMap map[string]models.Quote) error {
	if len(holdings) == 0 || len(quotesMap) == 0 {
		return apperrors.NewValidationError("export", nil, "not enough data to export")
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write([]string{"Símbolo", "Cantidad de Acciones", "Precio Actual (USD)"}); err != nil {
		return err
	}
	for _, h := range holdings {
		price := "Sin datos"
		if q, ok := quotesMap[h.Symbol]; ok {
			price = utils.FormatCommaDecimal(q.Price, 2)
		}
		row := []string{
			h.Symbol,
			strconv.FormatFloat(h.Shares, 'f', -1, 64),
			price,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the controller's current holdings and quotes to w.
func (c *Controller) ExportCSV(w io.Writer) error {
	c.mu.Lock()
	holdings := make([]models.Holding, len(c.holdings))
	copy(holdings, c.holdings)
	quotesMap := make(map[string]models.Quote, len(c.quotes))
	for k, v := range c.quotes {
		quotesMap[k] = v
	}
	c.mu.Unlock()

	if err := WriteCSV(w, holdings, quotesMap); err != nil {
		return c.fail(err)
	}
	return nil
}

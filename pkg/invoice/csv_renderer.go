package invoice

import (
	"bytes"
	"encoding/csv"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	RenderInvoice(invoice Invoice) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

func (t *CsvRendererImpl) RenderInvoice(invoice Invoice) (string, error) {
	data := make([][]string, 0, len(invoice.LineItems)+2)
	data = append(data, []string{"Date", "Description", "Hours", "Rate", "Amount"})
	for _, item := range invoice.LineItems {
		data = append(data, []string{
			item.Date.Format("2006-01-02"),
			item.Description,
			formatNumber(item.Hours),
			formatNumber(item.Rate),
			formatNumber(item.Amount),
		})
	}
	data = append(data, []string{"Total", invoice.Currency, formatNumber(invoice.TotalHours), "", formatNumber(invoice.TotalAmount)})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

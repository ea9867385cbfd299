package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/rcliao/blueprint/internal/domain"
)

// Row is one task in the CSV schedule export.
type Row struct {
	Objective     string `csv:"objective"`
	ObjectiveName string `csv:"objective_name"`
	Task          string `csv:"task"`
	TaskName      string `csv:"task_name"`
	Duration      int    `csv:"working_days"`
	Start         string `csv:"start"`
	Finish        string `csv:"finish"`
	Predecessor   string `csv:"predecessor"`
}

// Rows flattens a proposal in schedule order. Unscheduled dates are empty.
func Rows(p *domain.Proposal) []*Row {
	rows := make([]*Row, 0, p.TaskCount())
	for _, o := range p.Objectives {
		for _, t := range o.Tasks {
			rows = append(rows, &Row{
				Objective:     o.Order,
				ObjectiveName: o.Name,
				Task:          t.Order,
				TaskName:      t.Name,
				Duration:      t.Duration,
				Start:         isoDate(t.Start),
				Finish:        isoDate(t.Finish),
				Predecessor:   t.Predecessor,
			})
		}
	}
	return rows
}

func CSV(p *domain.Proposal) (string, error) {
	rows := Rows(p)
	return gocsv.MarshalString(&rows)
}

func WriteCSV(w io.Writer, p *domain.Proposal) error {
	rows := Rows(p)
	return gocsv.Marshal(&rows, w)
}

package client

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// RenderSimulations writes sims as a table.
func RenderSimulations(w io.Writer, sims []Simulation) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name"})
	for _, sim := range sims {
		table.Append([]string{strconv.FormatUint(sim.ID, 10), sim.Name})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(len(sims))})
	table.Render()
}

func RenderBenchmark(w io.Writer, report *BenchmarkReport, clients, iterations int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Operation", "Count", "Min (ms)", "Max (ms)", "Avg (ms)", "P99 (ms)"})

	for _, op := range report.Ops() {
		result := report.Results[op]
		table.Append([]string{
			op,
			strconv.FormatInt(result.Count, 10),
			fmt.Sprintf("%.2f", result.Min.Seconds()*1000),
			fmt.Sprintf("%.2f", result.Max.Seconds()*1000),
			fmt.Sprintf("%.2f", result.Avg.Seconds()*1000),
			fmt.Sprintf("%.2f", result.P99.Seconds()*1000),
		})
	}

	table.Render()
	fmt.Fprintf(w, "Successful clients: %d/%d\n", report.SuccessfulClients, clients)
	fmt.Fprintf(w, "Iterations per client: %d\n", iterations)
	fmt.Fprintf(w, "Total requests executed: %d\n", report.TotalRequests)
	fmt.Fprintf(w, "Total duration: %.2f seconds\n", report.Duration.Seconds())
	fmt.Fprintf(w, "Throughput: %.2f req/sec\n", report.Throughput())
}

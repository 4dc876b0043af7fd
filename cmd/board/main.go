// Command board renders the staffing pipeline in the terminal. It primes
// the cache from the resource API, optionally runs one mutation through the
// optimistic coordinator, and prints the three status buckets as tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/meridianhq/staffboard/internal/apiclient"
	"github.com/meridianhq/staffboard/internal/board"
	"github.com/meridianhq/staffboard/internal/cache"
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

func main() {
	clientFilter := flag.String("client", "", "filter by client name substring")
	gradesFlag := flag.String("grades", "", "comma-separated grade filter")
	needsHireFlag := flag.String("needs-hire", "all", "needs-hire filter: yes, no or all")
	moveID := flag.String("move", "", "opportunity id to move")
	moveTo := flag.String("to", "", "destination status for -move")
	flag.Parse()

	baseURL := os.Getenv("API_BASE_URL")
	token := os.Getenv("API_TOKEN")
	client := apiclient.New(baseURL, token)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if token == "" {
		email, password := os.Getenv("API_EMAIL"), os.Getenv("API_PASSWORD")
		if email != "" {
			if err := client.Login(ctx, email, password); err != nil {
				log.Fatalf("Login failed: %v", err)
			}
		}
	}

	criteria, err := buildCriteria(*clientFilter, *gradesFlag, *needsHireFlag)
	if err != nil {
		log.Fatal(err)
	}

	store := cache.New()
	coord := board.NewCoordinator(store, client)

	// Prime one partition per bucket with the requested filters.
	var descs []query.Descriptor
	for _, status := range models.OpportunityStatuses {
		d := query.NewDescriptor(status, criteria)
		opps, err := client.ListOpportunities(ctx, d)
		if err != nil {
			log.Fatalf("Failed to fetch %s bucket: %v", status, err)
		}
		store.Set(d, opps)
		descs = append(descs, d)
	}

	if *moveID != "" {
		if err := runMove(ctx, coord, descs, *moveID, *moveTo); err != nil {
			log.Fatalf("Move failed: %v", err)
		}
	}

	for _, d := range descs {
		renderBucket(d, coord.Read(d))
	}
}

func buildCriteria(client, grades, needsHire string) (query.Criteria, error) {
	c := query.DefaultCriteria()
	c.Client = client

	for _, part := range strings.Split(grades, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		g, err := models.ParseGrade(part)
		if err != nil {
			return query.Criteria{}, err
		}
		c.Grades = append(c.Grades, g)
	}

	nh, err := query.ParseNeedsHire(needsHire)
	if err != nil {
		return query.Criteria{}, err
	}
	c.NeedsHire = nh
	return c, nil
}

func runMove(ctx context.Context, coord *board.Coordinator, descs []query.Descriptor, id, to string) error {
	dest, err := models.ParseOpportunityStatus(to)
	if err != nil {
		return err
	}

	for _, d := range descs {
		for _, o := range coord.Read(d) {
			if o.ID == id {
				moved, err := coord.Move(ctx, o, dest)
				if err != nil {
					return err
				}
				log.Printf("Moved %q to %s", moved.OpportunityName, dest)
				return nil
			}
		}
	}
	return fmt.Errorf("opportunity %s not found in any fetched bucket", id)
}

// renderBucket flattens opportunities and their roles into table rows.
func renderBucket(d query.Descriptor, opps []models.Opportunity) {
	fmt.Printf("\n== %s (%d) ==\n", d.Status, len(opps))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Client", "Opportunity", "Prob", "Role", "Grade", "Role Status", "Alloc", "Hire?"})

	for _, o := range opps {
		if len(o.Roles) == 0 {
			t.AppendRow(table.Row{shortID(o.ID), o.ClientName, o.OpportunityName, fmt.Sprintf("%d%%", o.Probability), "-", "-", "-", "-", "-"})
			continue
		}
		for i, r := range o.Roles {
			hire := ""
			if r.NeedsHire {
				hire = "yes"
			}
			if i == 0 {
				t.AppendRow(table.Row{shortID(o.ID), o.ClientName, o.OpportunityName, fmt.Sprintf("%d%%", o.Probability),
					r.Name, r.RequiredGrade.Label(), r.Status, fmt.Sprintf("%d%%", r.Allocation), hire})
			} else {
				t.AppendRow(table.Row{"", "", "", "", r.Name, r.RequiredGrade.Label(), r.Status, fmt.Sprintf("%d%%", r.Allocation), hire})
			}
		}
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

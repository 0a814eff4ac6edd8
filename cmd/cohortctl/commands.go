package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/noah-isme/cohort-ledger-api/internal/facade"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
)

type app struct {
	out    io.Writer
	facade *facade.Facade
}

type runFunc func(ctx context.Context, a *app, args []string) error

type command struct {
	usage   string
	summary string
	args    int
	setup   func(fs *pflag.FlagSet) runFunc
}

var commands = map[string]command{
	"cohorts": {
		usage:   "[--statut s] [--q text]",
		summary: "List cohorts with headcount and capacity warnings",
		setup:   cohortsCmd,
	},
	"roster": {
		usage:   "<cohortId>",
		summary: "List the students enrolled in a cohort",
		args:    1,
		setup:   rosterCmd,
	},
	"open": {
		usage:   "<sessionId> <cohortId>",
		summary: "Mark every unmarked roster student absent",
		args:    2,
		setup:   openCmd,
	},
	"mark": {
		usage:   "<sessionId> <present|absent|late> <studentId>...",
		summary: "Set the same status for several students",
		args:    3,
		setup:   markCmd,
	},
	"presence": {
		usage:   "(--session id | --student id)",
		summary: "Presence rate of a session or a student",
		setup:   presenceCmd,
	},
	"stats": {
		summary: "Student population summary",
		setup:   statsCmd,
	},
	"upload": {
		usage:   "[--justificatif] <sessionId> <file>",
		summary: "Upload an emargement sheet or a justification",
		args:    2,
		setup:   uploadCmd,
	},
	"import-status": {
		usage:   "<jobId>",
		summary: "State of an emargement import",
		args:    1,
		setup:   importStatusCmd,
	},
}

func cohortsCmd(fs *pflag.FlagSet) runFunc {
	status := fs.String("statut", "", "Status filter")
	search := fs.String("q", "", "Search by name or school year")
	return func(ctx context.Context, a *app, _ []string) error {
		if err := a.facade.LoadAll(ctx); err != nil {
			return err
		}
		cohorts := a.facade.Cohorts(models.CohortFilter{
			Search: *search,
			Status: models.CohortStatus(*status),
		})
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNOM\tSTATUT\tINSCRITS\tPREVUS\t")
		for _, c := range cohorts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t", c.ID, c.Name, c.Status, c.EnrolledHeadcount, c.PlannedHeadcount)
			if warning, over := a.facade.CapacityWarning(c.ID); over {
				fmt.Fprint(tw, warning)
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	}
}

func rosterCmd(*pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.facade.LoadAll(ctx); err != nil {
			return err
		}
		students, missing, err := a.facade.Roster(args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNOM\tEMAIL\tSTATUT")
		for _, s := range students {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.FullName(), s.Email, s.Status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(missing) > 0 {
			fmt.Fprintf(a.out, "unknown roster ids: %s\n", strings.Join(missing, ", "))
		}
		return nil
	}
}

func openCmd(*pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app, args []string) error {
		if err := a.facade.LoadAll(ctx); err != nil {
			return err
		}
		created, err := a.facade.OpenSession(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d students marked absent for session %s\n", len(created), args[0])
		return nil
	}
}

func markCmd(*pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app, args []string) error {
		sessionID := args[0]
		if _, err := a.facade.LoadSession(ctx, sessionID); err != nil {
			return err
		}
		outcomes, err := a.facade.BulkSetStatus(ctx, sessionID, args[2:], models.AttendanceStatus(args[1]))
		if err != nil {
			return err
		}
		failed := 0
		for _, o := range outcomes {
			if o.OK() {
				fmt.Fprintf(a.out, "%s\t%s\tv%d\n", o.StudentID, o.Record.Status, o.Record.Version)
				continue
			}
			failed++
			fmt.Fprintf(a.out, "%s\tFAILED\t%s\n", o.StudentID, o.Reason)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d marks failed", failed, len(outcomes))
		}
		return nil
	}
}

func presenceCmd(fs *pflag.FlagSet) runFunc {
	session := fs.String("session", "", "Session ID")
	student := fs.String("student", "", "Student ID")
	return func(ctx context.Context, a *app, _ []string) error {
		var summary models.PresenceSummary
		switch {
		case *session != "":
			if _, err := a.facade.LoadSession(ctx, *session); err != nil {
				return err
			}
			summary = a.facade.SessionPresence(*session)
		case *student != "":
			if _, err := a.facade.LoadStudentAttendance(ctx, *student); err != nil {
				return err
			}
			summary = a.facade.StudentPresence(*student)
		default:
			return fmt.Errorf("one of --session or --student is required")
		}
		fmt.Fprintf(a.out, "present=%d late=%d absent=%d total=%d taux=%.1f%%\n",
			summary.Present, summary.Late, summary.Absent, summary.Total, summary.Rate)
		return nil
	}
}

func statsCmd(*pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app, _ []string) error {
		stats, err := a.facade.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "total: %d\nsans cohorte: %d\nmoyenne: %.2f\npresence: %.1f%%\nprogression: %.1f%%\n",
			stats.Total, stats.WithoutCohort, stats.AverageGrade, stats.AveragePresence, stats.AverageProgression)
		return nil
	}
}

func uploadCmd(fs *pflag.FlagSet) runFunc {
	justification := fs.Bool("justificatif", false, "Upload an absence justification instead of a sheet")
	return func(ctx context.Context, a *app, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		name := filepath.Base(args[1])
		var doc models.SessionDocument
		if *justification {
			doc, err = a.facade.UploadJustification(ctx, args[0], name, f)
		} else {
			doc, err = a.facade.UploadEmargement(ctx, args[0], name, f)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "document %s (%s, %d bytes)\n", doc.ID, doc.ContentType, doc.Size)
		if doc.ImportJobID != nil {
			fmt.Fprintf(a.out, "import job %s queued\n", *doc.ImportJobID)
		}
		return nil
	}
}

func importStatusCmd(*pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app, args []string) error {
		status, err := a.facade.ImportStatus(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%s\tattempts=%d", status.ID, status.State, status.Attempts)
		if status.Error != "" {
			fmt.Fprintf(a.out, "\terror=%s", status.Error)
		}
		fmt.Fprintln(a.out)
		return nil
	}
}

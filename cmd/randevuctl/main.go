// randevuctl is an operational tool for the reminder job store: inspect
// pending jobs, schedule a test reminder, purge, or resync from the
// appointment table.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"randevu/internal/config"
	"randevu/internal/db"
	"randevu/internal/reminder"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: randevuctl <command>")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  list           list pending reminder jobs")
	fmt.Fprintln(os.Stderr, "  test <id>      schedule a reminder for appointment <id> one minute out")
	fmt.Fprintln(os.Stderr, "  purge          remove all pending reminder jobs")
	fmt.Fprintln(os.Stderr, "  resync         rebuild the job set from scheduled appointments")
	os.Exit(2)
}

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg, _ := config.Load()
	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}

	sched := reminder.NewScheduler(gdb, nil, cfg.ReminderLead)

	switch flag.Arg(0) {
	case "list":
		jobs, err := sched.ListJobs()
		if err != nil {
			log.Fatal(err)
		}
		if len(jobs) == 0 {
			fmt.Println("no scheduled jobs found")
			return
		}
		fmt.Printf("found %d scheduled jobs:\n", len(jobs))
		for _, j := range jobs {
			fmt.Printf("  - appointment %d: %s at %s\n", j.AppointmentID, j.Status, j.RunAt.Format(time.RFC3339))
		}

	case "test":
		if flag.NArg() < 2 {
			usage()
		}
		id, err := strconv.ParseUint(flag.Arg(1), 10, 64)
		if err != nil {
			log.Fatalf("invalid appointment id: %v", err)
		}
		at := time.Now().Add(time.Minute)
		if err := sched.Schedule(id, at); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("scheduled test reminder for appointment %d at %s\n", id, at.Format(time.RFC3339))

	case "purge":
		res := gdb.Where("1 = 1").Delete(&reminder.Job{})
		if res.Error != nil {
			log.Fatal(res.Error)
		}
		fmt.Printf("removed %d scheduled reminders\n", res.RowsAffected)

	case "resync":
		n, err := sched.ResyncAll()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("scheduled %d appointment reminders\n", n)

	default:
		usage()
	}
}

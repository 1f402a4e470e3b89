package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"projects/internal/platform/config"
	"projects/internal/platform/httpserver"
	"projects/internal/platform/logger"
	"projects/internal/staff/handler"
	"projects/internal/staff/service"
)

const usageText = `usage: projects [-config file] <command> [args]

commands:
  init                                create the directory tables (SQL stores)
  employee <id>                       print an employee
  department <id>                     print a department and its members
  email-exists <email>                report whether an address is registered
  sign-in <email>                     check a password read from stdin
  hire <email> <first> <last> <wage> [department-id]
                                      hire an employee; password read from stdin
  create-department <name> <budget>   create a department
  appoint-head <department-id> <employee-id>
  serve                               run the ops HTTP server

Without a config file the directory lives in ./projects.db (SQLite).
`

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "projects: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", os.Getenv("PROJECTS_CONFIG"), "Path to a YAML config file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usageText) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log := logger.New(level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := open(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close store", "error", err)
		}
	}()

	return run(ctx, a, cfg, log, reg, flag.Arg(0), flag.Args()[1:], os.Stdin, os.Stdout)
}

func run(ctx context.Context, a *app, cfg config.Config, log *slog.Logger, reg *prometheus.Registry,
	cmd string, args []string, stdin io.Reader, stdout io.Writer) error {
	d := a.directory
	schemas := d.Schemas()

	switch cmd {
	case "init":
		if err := a.initialize(ctx); err != nil {
			return err
		}
		log.Info("directory tables ready", "driver", cfg.Store.Driver)
		return nil

	case "employee":
		id, err := intArg(args, 0, "employee id")
		if err != nil {
			return err
		}
		e, err := d.Employee(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, schemas.Employees.String(e))
		return nil

	case "department":
		id, err := intArg(args, 0, "department id")
		if err != nil {
			return err
		}
		dept, err := d.Department(ctx, id)
		if err != nil {
			return err
		}
		members, err := d.Employees(ctx, dept)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, schemas.Departments.String(dept))
		for _, m := range members {
			fmt.Fprintln(stdout, "  "+schemas.Employees.String(m))
		}
		return nil

	case "email-exists":
		if len(args) < 1 {
			return errors.New("email-exists needs an email")
		}
		ok, err := d.EmailExists(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, ok)
		return nil

	case "sign-in":
		if len(args) < 1 {
			return errors.New("sign-in needs an email")
		}
		password, err := readPassword(stdin)
		if err != nil {
			return err
		}
		e, err := d.SignIn(ctx, args[0], password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "signed in as %s (head of department: %t)\n", e.FullName(), d.IsHead(e))
		return nil

	case "hire":
		if len(args) < 4 {
			return errors.New("hire needs email, first name, last name and wage")
		}
		wage, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("wage: %w", err)
		}
		var dept int64
		if len(args) > 4 {
			if dept, err = intArg(args, 4, "department id"); err != nil {
				return err
			}
		}
		password, err := readPassword(stdin)
		if err != nil {
			return err
		}
		e, err := d.HireEmployee(ctx, service.NewHire{
			Email: args[0], FirstName: args[1], LastName: args[2], Password: password, Wage: wage, DepartmentID: dept,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, schemas.Employees.String(e))
		return nil

	case "create-department":
		if len(args) < 2 {
			return errors.New("create-department needs a name and a budget")
		}
		budget, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("budget: %w", err)
		}
		dept, err := d.CreateDepartment(ctx, args[0], budget)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, schemas.Departments.String(dept))
		return nil

	case "appoint-head":
		deptID, err := intArg(args, 0, "department id")
		if err != nil {
			return err
		}
		empID, err := intArg(args, 1, "employee id")
		if err != nil {
			return err
		}
		return d.AppointHead(ctx, deptID, empID)

	case "serve":
		return serve(ctx, a, cfg, log, reg)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(ctx context.Context, a *app, cfg config.Config, log *slog.Logger, reg *prometheus.Registry) error {
	h := handler.New(a.directory, log)
	router := httpserver.NewRouter(a.health, reg, func(r chi.Router) { h.Register(r) })
	srv := httpserver.New(cfg.Ops.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.Ops.Addr, "driver", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func intArg(args []string, i int, name string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// readPassword takes the first line of r. PROJECTS_PASSWORD wins when set.
func readPassword(r io.Reader) (string, error) {
	if p, ok := os.LookupEnv("PROJECTS_PASSWORD"); ok {
		return p, nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/condamigrate/internal/cache"
	"github.com/git-pkgs/condamigrate/internal/migrate"
	"github.com/git-pkgs/condamigrate/internal/pipenv"
)

type convertReport struct {
	Environment     string   `json:"environment,omitempty" yaml:"environment,omitempty"`
	Name            string   `json:"name" yaml:"name"`
	ProfileComplete bool     `json:"profile_complete" yaml:"profile_complete"`
	Profile         []string `json:"profile" yaml:"profile"`
	Conda           []string `json:"conda" yaml:"conda"`
	Pip             []string `json:"pip" yaml:"pip"`
	Editables       []string `json:"editables,omitempty" yaml:"editables,omitempty"`
	ExtraIndexes    []string `json:"extra_indexes,omitempty" yaml:"extra_indexes,omitempty"`
}

func newConvertReport(res *migrate.Result, name, path string) convertReport {
	r := convertReport{
		Environment:     path,
		Name:            name,
		ProfileComplete: res.ProfileComplete,
		Profile:         []string{},
		Conda:           []string{},
		Pip:             []string{},
		Editables:       res.Editables,
		ExtraIndexes:    res.ExtraIndexes,
	}
	for _, p := range res.Profile {
		r.Profile = append(r.Profile, p.FormatConda())
	}
	for _, p := range res.Conda {
		r.Conda = append(r.Conda, p.FormatConda())
	}
	for _, req := range res.Pip {
		r.Pip = append(r.Pip, req.FormatPip())
	}
	return r
}

func (r convertReport) writeText(w io.Writer) error {
	writeList(w, "profile", r.Profile)
	if !r.ProfileComplete {
		fmt.Fprintln(w, "  (incomplete: some base packages have no conda candidate)")
	}
	writeList(w, "conda", r.Conda)
	writeList(w, "pip", r.Pip)
	if len(r.Editables) > 0 {
		writeList(w, "editables (install with pip install -e)", r.Editables)
	}
	if r.Environment != "" {
		fmt.Fprintf(w, "environment %s written to %s\n", r.Name, r.Environment)
	}
	return nil
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		noDev  bool
		dryRun bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "convert <project>",
		Short: "Convert a Pipfile.lock project into a conda environment file",
		Long: `Read the Pipfile.lock of a project, solve the base profile and every
locked package against the conda catalog, and write <project>.conda.yaml
next to the lock file. Packages without a compatible conda build are
installed with pip.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(output); err != nil {
				return err
			}
			project, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			mode := pipenv.Dev
			if noDev {
				mode = pipenv.Default
			}
			lock, err := pipenv.Load(project, pipenv.WithMode(mode))
			if err != nil {
				return err
			}

			s, err := a.searcher()
			if err != nil {
				return err
			}
			c, err := cache.New(a.cfg.CacheDir, a.cacheOptions()...)
			if err != nil {
				return err
			}

			pipeline := migrate.New(s, c,
				migrate.WithLogger(a.logger),
				migrate.WithPlanOptions(a.planOptions()...),
			)
			res, err := pipeline.Convert(cmd.Context(), lock)
			if err != nil {
				return err
			}

			path, name := migrate.EnvironmentPath(lock.Path())
			if dryRun {
				path = ""
			} else {
				if err := res.Environment(name).WriteFile(path); err != nil {
					return err
				}
				a.logger.Info("environment written", "path", path)
			}

			report := newConvertReport(res, name, path)
			return render(cmd.OutOrStdout(), output, report, report.writeText)
		},
	}
	cmd.Flags().BoolVar(&noDev, "no-dev", false, "ignore development dependencies")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the conversion without writing the environment file")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "output format: text, yaml or json")
	return cmd
}

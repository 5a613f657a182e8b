package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the setup wizard answers as form strings.
type SetupValues struct {
	File         string
	WindowMode   string
	Windows      string
	FallbackRate string
	DiskCache    bool
	Theme        string
}

// NewSetupValues prefills the wizard from cfg.
func NewSetupValues(cfg config.Config) *SetupValues {
	windows := make([]string, len(cfg.Stats.Windows))
	for i, w := range cfg.Stats.Windows {
		windows[i] = strconv.Itoa(w)
	}
	v := &SetupValues{
		File:       cfg.General.File,
		WindowMode: cfg.Stats.WindowMode,
		Windows:    strings.Join(windows, ","),
		DiskCache:  cfg.Rates.DiskCache,
		Theme:      cfg.Appearance.Theme,
	}
	if v.WindowMode == "" {
		v.WindowMode = pipeline.WindowRows.String()
	}
	if cfg.Rates.FallbackRate != nil {
		v.FallbackRate = strings.Replace(strconv.FormatFloat(*cfg.Rates.FallbackRate, 'f', -1, 64), ".", ",", 1)
	}
	return v
}

// Apply copies the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) error {
	windows, err := parseWindowList(v.Windows)
	if err != nil {
		return err
	}
	if _, err := pipeline.ParseWindowMode(v.WindowMode); err != nil {
		return err
	}

	cfg.General.File = strings.TrimSpace(v.File)
	cfg.Stats.WindowMode = v.WindowMode
	cfg.Stats.Windows = windows
	cfg.Rates.DiskCache = v.DiskCache
	cfg.Appearance.Theme = theme.ByName(v.Theme).Name

	cfg.Rates.FallbackRate = nil
	if strings.TrimSpace(v.FallbackRate) != "" {
		rate, err := parseFormRate(v.FallbackRate)
		if err != nil {
			return fmt.Errorf("taxa reserva: %w", err)
		}
		cfg.Rates.FallbackRate = &rate
	}
	return nil
}

func parseWindowList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("janela inválida %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("informe ao menos uma janela")
	}
	return out, nil
}

// NewSetupForm builds the first-run configuration wizard bound to v.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Bem-vindo ao financas!").
				Description("Algumas preferências. Dados de meta nunca são salvos."),
			huh.NewInput().
				Title("Extrato padrão").
				Description("Arquivo CSV ou diretório com CSVs (opcional)").
				Value(&v.File),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Janelas estatísticas").
				Options(
					huh.NewOption("Por registro (linhas)", pipeline.WindowRows.String()),
					huh.NewOption("Por mês de calendário", pipeline.WindowCalendarMonths.String()),
				).
				Value(&v.WindowMode),
			huh.NewInput().
				Title("Tamanhos das janelas").
				Description("Separados por vírgula").
				Value(&v.Windows).
				Validate(func(s string) error {
					_, err := parseWindowList(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Taxa reserva (% a.a.)").
				Description("Usada quando a consulta da SELIC falha (opcional)").
				Value(&v.FallbackRate).
				Validate(validateRate),
			huh.NewConfirm().
				Title("Guardar histórico da SELIC em disco?").
				Value(&v.DiskCache),
			huh.NewSelect[string]().
				Title("Tema").
				Options(themeOpts...).
				Value(&v.Theme),
		),
	).WithTheme(huh.ThemeCharm())
}

package cli

import (
	"fmt"
)

// ThemeCmd shows the selected theme, or selects one.
type ThemeCmd struct {
	Name string `arg:"" optional:"" help:"Theme to select."`
}

// Run the theme command.
func (c *ThemeCmd) Run(appCtx *Context) error {
	themes := appCtx.App.Theme
	if c.Name != "" {
		if err := themes.SetTheme(c.Name); err != nil {
			return err
		}
	}
	all, err := themes.AllThemes()
	if err != nil {
		return err
	}
	current := themes.Current()
	for _, theme := range all {
		marker := " "
		if theme.ID == current {
			marker = "*"
		}
		fmt.Fprintf(appCtx.Stdout, "%s %-6s %-6s %s\n", marker, theme.ID, theme.Name, theme.PrimaryColor)
	}
	return nil
}

// LanguageCmd shows the selected language, or selects one.
type LanguageCmd struct {
	Code string `arg:"" optional:"" help:"Language code, e.g. en-US."`
}

// Run the language command.
func (c *LanguageCmd) Run(appCtx *Context) error {
	if c.Code != "" {
		if err := appCtx.App.Language.SetLanguage(c.Code); err != nil {
			return err
		}
	}
	fmt.Fprintln(appCtx.Stdout, appCtx.App.Language.Current())
	return nil
}

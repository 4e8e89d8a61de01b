// Package pprint: eportal ASCII banner.
package pprint

import "fmt"

var bannerLines = []string{
	" ███████╗██████╗  ██████╗ ██████╗ ████████╗ █████╗ ██╗",
	" ██╔════╝██╔══██╗██╔═══██╗██╔══██╗╚══██╔══╝██╔══██╗██║",
	" █████╗  ██████╔╝██║   ██║██████╔╝   ██║   ███████║██║",
	" ██╔══╝  ██╔═══╝ ██║   ██║██╔══██╗   ██║   ██╔══██║██║",
	" ███████╗██║     ╚██████╔╝██║  ██║   ██║   ██║  ██║███████╗",
	" ╚══════╝╚═╝      ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝╚══════╝",
}

// PrintBanner prints the eportal banner with version and tagline.
func PrintBanner(version, buildDate string) {
	styles := []func(strs ...string) string{
		StylePrimary.Render, StylePrimary.Render,
		StyleAccent.Render, StyleAccent.Render,
		StyleText.Render, StyleMuted.Render,
	}

	fmt.Fprintln(Out)
	for i, line := range bannerLines {
		fmt.Fprintln(Out, styles[i](line))
	}
	fmt.Fprintln(Out)

	tagline := StyleMuted.Render("  Campus eportal login client")
	versionStr := StyleAccent.Render("  " + version)
	if buildDate != "" {
		versionStr += StyleMuted.Render("  built " + buildDate)
	}

	fmt.Fprintln(Out, tagline)
	fmt.Fprintln(Out, versionStr)
	fmt.Fprintln(Out)
}

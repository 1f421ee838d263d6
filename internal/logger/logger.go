// Package logger prints colored, tagged console output for the admin daemon.
package logger

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	gray   = "\033[90m"
)

func stamp() string {
	return time.Now().Format("15:04:05")
}

func line(color, level, tag, msg string) {
	fmt.Printf("%s%s%s %s%-5s%s %s[%s]%s %s\n",
		gray, stamp(), reset, color, level, reset, bold, tag, reset, msg)
}

// Info prints a neutral progress message.
func Info(tag, msg string) { line(blue, "INFO", tag, msg) }

// Success prints a completed-step message.
func Success(tag, msg string) { line(green, "OK", tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { line(yellow, "WARN", tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { line(red, "ERROR", tag, msg) }

// Banner prints the startup header with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Println(cyan + "╔══════════════════════════════════════╗" + reset)
	fmt.Printf(cyan+"║"+reset+bold+"  GRAIN ADMIN  "+reset+"%-23s"+cyan+"║"+reset+"\n", version)
	fmt.Println(cyan + "╚══════════════════════════════════════╝" + reset)
}

// Section prints a titled separator for grouped startup output.
func Section(title string) {
	pad := 35 - utf8.RuneCountInString(title)
	if pad < 0 {
		pad = 0
	}
	fmt.Println()
	fmt.Println(bold + cyan + "── " + title + " " + strings.Repeat("─", pad) + reset)
}

// Stats prints one aligned key/value line under a Section.
func Stats(key string, value any) {
	fmt.Printf("   %s%-14s%s %v\n", gray, key, reset, value)
}

// Server prints where the HTTP server is listening.
func Server(addr string) {
	fmt.Println()
	fmt.Printf("   %s➜%s  Listening on %shttp://%s%s\n", green, reset, cyan, addr, reset)
	fmt.Println()
}

package rules

// Examples returns the sample rules printed by `cmdrunner rules example`.
func Examples() []Definition {
	return []Definition{
		{
			Title:          "Example Report Rule",
			Description:    "A rule that matches an input string from dir, shows a shortPattern to reduce misses on expensive patterns, shows parsing, and creates a report entry.",
			Example:        ` Directory of D:\projects\CommandRunner`,
			ShortPattern:   "Directory",
			Pattern:        "^ Directory of ([a-zA-Z]):(.+)$",
			PassOutput:     Bool(true),
			StopProcessing: Bool(false),
			SetError:       Bool(false),
			ProcessStdOut:  Bool(true),
			ProcessStdErr:  Bool(true),
			ReportFormat:   "Drive: {1}\nFolder: {2}",
		},
		{
			Title:          "Example Error Rule",
			Description:    "A rule that matches an input string from dir and marks the command as an error (making sure the command returns a non-zero value) if run on drive D.",
			Example:        ` Directory of D:\projects\CommandRunner`,
			Pattern:        "^ Directory of D:.+$",
			PassOutput:     Bool(true),
			StopProcessing: Bool(true),
			SetError:       Bool(true),
			ProcessStdOut:  Bool(true),
			ProcessStdErr:  Bool(true),
			StderrFormat:   "\n**********\nERROR - This was run on drive D.\n**********\n",
		},
	}
}

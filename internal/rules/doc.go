// Package rules turns a cleanup rule file into an immutable RuleSet.
//
// # Rule file
//
// The rule file (default name .cleanup-patterns.yml) has three optional
// top-level keys:
//
//	remove: |
//	  # comment
//	  Thumbs.db
//	  *.url
//	  /sample|trailer
//	remove_hash:
//	  01.jpg: [d41d8cd98f00b204e9800998ecf8427e]
//	cleanup: |
//	  \.bak$
//	  \[www\.[^\]]+\]
//
// # Pattern kinds
//
// Entries of remove and keys of remove_hash are name-patterns:
//
//   - `/body` - Regex, unanchored substring search over the filename
//   - contains `*` or `?` - Wildcard, must match the entire filename;
//     `[...]` classes, `{a,b}` alternation and `\` escapes are also understood
//   - anything else - Exact, full-string equality
//
// Exact and Wildcard are case-sensitive unless CompileOptions.Fold is set.
// Entries of cleanup are regex bodies whose every match is deleted from
// the filename, applied in order.
//
// # Discovery
//
// Resolver walks from the target directory up to the filesystem root
// looking for the rule file, then tries the user's home directory once.
// The first file found is used; nothing is merged.
package rules

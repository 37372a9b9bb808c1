// Package repo maps product types to file-system locations. Each product is
// described declaratively (identity parameters, path regexes, directory and
// filename templates, a load function) and registered once; the repository
// then answers discovery queries by rendering the templates into a glob
// pattern, matching hits back against the regex list, and filtering the
// captured identity fields.
package repo

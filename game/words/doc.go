// Package words manages word lists and deals Codenames boards from them.
//
// Word sets are JSON files in a directory:
//
//	{"name": "Classic", "description": "...", "words": ["Apple", "Bank", ...]}
//
// Manager loads, caches, lists and saves them; classic.json is the default
// when present. NewBoard deals 25 distinct words with the standard 9/8/7/1
// color split and NewKey derives a readable game key. Neither is used by the
// session core: clients request a board over the API and pass it back in a
// NEW_GAME message.
package words

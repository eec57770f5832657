package ui

// helpMarkdown is the key reference rendered behind the ? overlay. Glamour
// picks a light or dark style to match the terminal.
const helpMarkdown = `# Loomview keys

## Moving around

| Key | Action |
|-----|--------|
| j / ↓ | next row |
| k / ↑ | previous row |
| g / G | first / last row |
| ctrl+d, pgdn | half page down |
| ctrl+u, pgup | half page up |
| p | jump to parent |
| ] / [ | next / previous sibling |

## Graph structure

| Key | Action |
|-----|--------|
| enter / space | collapse or expand the selected container |
| C | collapse every container |
| E | expand every container |

Collapsing a container hides its contents and folds the edges that crossed
its boundary into aggregated edges, marked with an ` + "`xN`" + ` badge.

## Tree rows

Folding a row only hides its children in this pane. The graph, and any
exported snapshot, is unaffected.

| Key | Action |
|-----|--------|
| tab | fold or unfold the selected row |
| X / Z | unfold / fold all rows |

## Search

| Key | Action |
|-----|--------|
| / | start a search |
| enter | run it |
| n / N | next / previous match |
| esc | clear navigation, then the search |

Matching is case-insensitive over labels and identifiers. Matches inside
collapsed branches are revealed in the tree but stay collapsed in the graph
until you expand them.

## Everything else

| Key | Action |
|-----|--------|
| y | copy the selected identifier |
| d | show or hide the detail pane |
| v | focus the detail pane for scrolling |
| ctrl+r, f5 | reload the document |
| ? | toggle this help |
| q, ctrl+c | quit |

Edit ` + "`~/.config/loomview/config.yaml`" + ` to change layout spacing,
search limits and watcher behavior.
`

package mcpserver

// NodeTaxonomyContract describes the content-tree taxonomy that LLM
// consumers must follow when creating or arranging nodes.
const NodeTaxonomyContract = `# Raido Node Taxonomy Contract

The content tree is built from folder nodes and file nodes.

## Folder kinds

- **location** — a geographic area (city, park, museum). May appear at any
  level except inside a map.
- **map** — a navigable map of a location. May only contain **spot** and
  **stop** folders.
- **spot** — a point of interest on a map or inside a location.
- **stop** — one station of a guided tour route.

## File nodes

- Files live inside repository folders and are either **audio** or **image**,
  classified by MIME prefix at upload time. Anything else is rejected.
- Audio files carry duration (seconds), a display size label, and a creation
  timestamp.
- Image files carry a serving URL, a creation timestamp, and a non-negative
  **position** label used to order images for display. Positions are labels,
  not a strict permutation: the platform never renumbers neighbours, and
  duplicates are the caller's responsibility to resolve.

## Rules

1. The tree root is the sentinel id ` + "`root`" + `. Top-level nodes carry it as
   their parent.
2. A **map** folder may only contain **spot** and **stop** children.
3. Deleting a folder does NOT delete its children; they remain in the catalog
   with a dangling parent. Clean up descendants first if that matters.
4. Node names are free-form display labels; identity lives in the id.
5. Access codes gate visitor access and are valid only inside their
   [valid_from, valid_until] window.
`

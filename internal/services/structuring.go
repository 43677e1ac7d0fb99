package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"
  "unicode/utf8"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

const (
  maxNodeCount = 100
  maxNodeLevel = 2

  maxFallbackBranches = 8

  rootPosX      = 120.0
  rootPosY      = 400.0
  level1PosX    = 420.0
  level2PosX    = 700.0
  level1Spacing = 240.0
  level2Spacing = 80.0

  rootColor = "#64748b"
)

// branchPalette colors level-1 branches; descendants inherit so a whole
// subtree reads as one family on the canvas.
var branchPalette = []string{
  "#ef4444", "#f59e0b", "#10b981", "#3b82f6",
  "#8b5cf6", "#ec4899", "#14b8a6", "#f97316",
}

// StructuringService turns validated document text into the persisted node
// tree. It never returns an empty result on model failure: a deterministic
// fallback outline is built from the leading chunks instead.
type StructuringService interface {
  BuildMindMap(ctx context.Context, doc *types.Document, chunks []*types.DocumentChunk) ([]*types.Node, error)
}

type structuringService struct {
  log      *logger.Logger
  ai       AIClient
  nodeRepo repos.NodeRepo
}

func NewStructuringService(log *logger.Logger, ai AIClient, nodeRepo repos.NodeRepo) StructuringService {
  return &structuringService{
    log:      log.With("service", "StructuringService"),
    ai:       ai,
    nodeRepo: nodeRepo,
  }
}

// outlineEntry is the untrusted shape we accept from the model. Every field
// is revalidated before use; Level is a pointer so a missing level is
// distinguishable from level 0.
type outlineEntry struct {
  ID       string `json:"id"`
  Parent   string `json:"parent"`
  Title    string `json:"title"`
  Summary  string `json:"summary"`
  Level    *int   `json:"level"`
  Evidence string `json:"evidence"`
}

type outlinePayload struct {
  Nodes []outlineEntry `json:"nodes"`
}

func (s *structuringService) BuildMindMap(ctx context.Context, doc *types.Document, chunks []*types.DocumentChunk) ([]*types.Node, error) {
  outline, err := s.generateOutline(ctx, doc)
  if err != nil {
    s.log.Warn("Outline generation failed, using fallback structure",
      "document_id", doc.ID, "error", err)
    outline = fallbackOutline(chunks)
  }

  nodes := layoutNodes(doc.ID, outline)
  created, err := s.nodeRepo.Create(ctx, nil, nodes)
  if err != nil {
    return nil, fmt.Errorf("persist nodes: %w", err)
  }
  s.log.Info("Mind map persisted", "document_id", doc.ID, "node_count", len(created))
  return created, nil
}

const outlineSystemPrompt = `You convert study material into a mind map outline.
Respond with JSON only: {"nodes":[{"id":"n1","parent":"","title":"...","summary":"...","level":0,"evidence":"..."}]}.
Rules: exactly one node with level 0 and empty parent; level 1 nodes reference the root id; level 2 nodes reference a level 1 id; never go deeper than level 2; at most 100 nodes total.
Each evidence field quotes a short verbatim excerpt from the source supporting the node.`

func (s *structuringService) generateOutline(ctx context.Context, doc *types.Document) (*parsedOutline, error) {
  user := fmt.Sprintf("Build the mind map outline for this document:\n\n%s", doc.ExtractedText)
  raw, err := s.ai.Complete(ctx, outlineSystemPrompt, user)
  if err != nil {
    return nil, err
  }

  var payload outlinePayload
  if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
    return nil, fmt.Errorf("parse outline response: %w", err)
  }
  if len(payload.Nodes) == 0 {
    return nil, fmt.Errorf("outline response contained no nodes")
  }

  outline, dropped := repairTopology(payload.Nodes)
  if outline == nil {
    return nil, fmt.Errorf("outline response had no usable root")
  }
  if dropped > 0 {
    s.log.Warn("Dropped outline nodes during topology repair",
      "document_id", doc.ID, "dropped", dropped)
  }
  return outline, nil
}

// stripCodeFences removes a leading/trailing markdown fence the model
// sometimes wraps JSON in.
func stripCodeFences(s string) string {
  s = strings.TrimSpace(s)
  if !strings.HasPrefix(s, "```") {
    return s
  }
  s = strings.TrimPrefix(s, "```json")
  s = strings.TrimPrefix(s, "```")
  s = strings.TrimSuffix(strings.TrimSpace(s), "```")
  return strings.TrimSpace(s)
}

// parsedOutline is a repaired three level tree in parse order.
type parsedOutline struct {
  Root     outlineEntry
  Level1   []outlineEntry
  Children map[string][]outlineEntry // level-1 entry ID -> level-2 entries
}

// repairTopology keeps only the structurally valid part of the model output:
// one root, parents one level above their children, nothing orphaned. Nodes
// with a missing or wrong-level parent are dropped along with their
// descendants rather than inserted dangling. The tree is then truncated
// deepest-first to the node ceiling.
func repairTopology(entries []outlineEntry) (*parsedOutline, int) {
  dropped := 0

  valid := make([]outlineEntry, 0, len(entries))
  seen := map[string]bool{}
  for _, e := range entries {
    e.Title = strings.TrimSpace(e.Title)
    e.ID = strings.TrimSpace(e.ID)
    e.Parent = strings.TrimSpace(e.Parent)
    if e.ID == "" || e.Title == "" || e.Level == nil || *e.Level < 0 || *e.Level > maxNodeLevel || seen[e.ID] {
      dropped++
      continue
    }
    if (*e.Level == 0) != (e.Parent == "") {
      dropped++
      continue
    }
    seen[e.ID] = true
    valid = append(valid, e)
  }

  var root *outlineEntry
  for i := range valid {
    if *valid[i].Level == 0 {
      root = &valid[i]
      break
    }
  }
  if root == nil {
    return nil, dropped
  }

  out := &parsedOutline{Root: *root, Children: map[string][]outlineEntry{}}
  level1IDs := map[string]bool{}
  for _, e := range valid {
    if *e.Level == 1 && e.Parent == root.ID {
      out.Level1 = append(out.Level1, e)
      level1IDs[e.ID] = true
    }
  }
  for _, e := range valid {
    if *e.Level == 2 && level1IDs[e.Parent] {
      out.Children[e.Parent] = append(out.Children[e.Parent], e)
    }
  }

  kept := out.count()
  dropped += len(valid) - kept

  // Over the ceiling: shed level-2 details from the tail first, then whole
  // level-1 branches, never the root.
  for out.count() > maxNodeCount {
    if !out.dropDeepestFromTail() {
      break
    }
    dropped++
  }
  return out, dropped
}

func (o *parsedOutline) count() int {
  n := 1 + len(o.Level1)
  for _, c := range o.Children {
    n += len(c)
  }
  return n
}

func (o *parsedOutline) dropDeepestFromTail() bool {
  for i := len(o.Level1) - 1; i >= 0; i-- {
    id := o.Level1[i].ID
    if kids := o.Children[id]; len(kids) > 0 {
      o.Children[id] = kids[:len(kids)-1]
      return true
    }
  }
  if len(o.Level1) > 0 {
    o.Level1 = o.Level1[:len(o.Level1)-1]
    return true
  }
  return false
}

// fallbackOutline builds the deterministic structure used when the model is
// unavailable or returned garbage: a single overview root with up to eight
// branches lifted straight from the leading chunks.
func fallbackOutline(chunks []*types.DocumentChunk) *parsedOutline {
  zero, one := 0, 1
  out := &parsedOutline{
    Root: outlineEntry{
      ID:      "root",
      Title:   "Document Overview",
      Summary: "Automatically generated overview of the uploaded document",
      Level:   &zero,
    },
    Children: map[string][]outlineEntry{},
  }
  for i, chunk := range chunks {
    if i >= maxFallbackBranches {
      break
    }
    out.Level1 = append(out.Level1, outlineEntry{
      ID:      fmt.Sprintf("part-%d", i+1),
      Parent:  "root",
      Title:   truncateText(chunk.Text, 60),
      Summary: truncateText(chunk.Text, 200),
      Level:   &one,
    })
  }
  return out
}

func truncateText(s string, n int) string {
  s = strings.TrimSpace(s)
  if len(s) <= n {
    return s
  }
  // never cut in the middle of a multi-byte rune
  for n > 0 && !utf8.RuneStart(s[n]) {
    n--
  }
  cut := s[:n]
  if i := strings.LastIndex(cut, " "); i > n/2 {
    cut = cut[:i]
  }
  return cut + "..."
}

// layoutNodes recomputes every coordinate deterministically from level and
// sibling index. Only the model's topology is trusted; its numbers never are.
// Root sits at a fixed left anchor, level-1 branches fan out vertically at a
// fixed offset, level-2 details spread around their parent further right and
// inherit its branch color.
func layoutNodes(documentID uuid.UUID, outline *parsedOutline) []*types.Node {
  nodes := make([]*types.Node, 0, outline.count())

  root := &types.Node{
    ID:         uuid.New(),
    DocumentID: documentID,
    Title:      outline.Root.Title,
    Summary:    outline.Root.Summary,
    Level:      0,
    PosX:       rootPosX,
    PosY:       rootPosY,
    Color:      rootColor,
    Evidence:   evidenceJSON(outline.Root.Evidence),
  }
  nodes = append(nodes, root)

  n1 := len(outline.Level1)
  for i, entry := range outline.Level1 {
    color := branchPalette[i%len(branchPalette)]
    branch := &types.Node{
      ID:         uuid.New(),
      DocumentID: documentID,
      ParentID:   &root.ID,
      Title:      entry.Title,
      Summary:    entry.Summary,
      Level:      1,
      PosX:       level1PosX,
      PosY:       rootPosY + (float64(i)-float64(n1-1)/2)*level1Spacing,
      Color:      color,
      Evidence:   evidenceJSON(entry.Evidence),
    }
    nodes = append(nodes, branch)

    kids := outline.Children[entry.ID]
    n2 := len(kids)
    for j, kid := range kids {
      nodes = append(nodes, &types.Node{
        ID:         uuid.New(),
        DocumentID: documentID,
        ParentID:   &branch.ID,
        Title:      kid.Title,
        Summary:    kid.Summary,
        Level:      2,
        PosX:       level2PosX,
        PosY:       branch.PosY + (float64(j)-float64(n2-1)/2)*level2Spacing,
        Color:      color,
        Evidence:   evidenceJSON(kid.Evidence),
      })
    }
  }
  return nodes
}

func evidenceJSON(excerpt string) datatypes.JSON {
  excerpt = strings.TrimSpace(excerpt)
  if excerpt == "" {
    return nil
  }
  b, err := json.Marshal(map[string]string{"excerpt": excerpt})
  if err != nil {
    return nil
  }
  return datatypes.JSON(b)
}

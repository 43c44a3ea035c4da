package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"juvixmode/internal/cache"
	"juvixmode/internal/highlight"
	"juvixmode/internal/juvix"
	"juvixmode/internal/observ"
	"juvixmode/internal/project"
	"juvixmode/internal/trace"
)

func (s *Server) handleSemanticTokens(msg *rpcMessage) error {
	var params semanticTokensParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	if path == "" {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	text, ok := s.fileText(path)
	if !ok {
		return s.sendError(msg.ID, codeInvalidParams, "unknown document "+uri)
	}
	if !s.currentSettings().EnableSemanticSyntax {
		return s.sendResponse(msg.ID, semanticTokens{Data: []uint32{}})
	}
	client := s.currentClient()
	gen := s.index.Reserve()
	return s.goRequest(msg, func(ctx context.Context) (any, error) {
		data, err := s.highlight(ctx, client, path, text, gen)
		if err != nil {
			return nil, err
		}
		return semanticTokens{Data: data}, nil
	})
}

// highlight runs the compiler's highlighter on text, installs the resulting
// index for path under generation gen and returns the encoded semantic
// tokens. Nothing is installed when the run fails, ctx is cancelled, or a
// request that arrived later already installed its index.
func (s *Server) highlight(ctx context.Context, client *juvix.Client, path, text string, gen uint64) ([]uint32, error) {
	timer := observ.NewTimer()
	key := cache.KeyFor(client.Exec(), client.GlobalFlags(), path, text)

	payload, hit := s.cache.Get(key)
	if !hit {
		run := timer.Begin("run")
		var err error
		payload, err = client.Highlight(ctx, path, text)
		timer.End(run, "")
		if err != nil {
			return nil, err
		}
	}

	decode := timer.Begin("decode")
	p, err := highlight.Decode(payload)
	timer.End(decode, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if !hit {
		deps := cache.StampFiles(project.DependencyFiles(path, p.TargetFiles(path)))
		if err := s.cache.Put(key, path, payload, deps); err != nil {
			s.logf("highlight cache: %v", err)
		}
	}

	build := timer.Begin("index")
	idx := highlight.Build(path, p)
	timer.End(build, "")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	installed := s.index.Install(idx, gen)

	encode := timer.Begin("encode")
	data := highlight.Encode(highlight.Tokens(p.Face, text))
	timer.End(encode, "")
	if data == nil {
		data = []uint32{}
	}

	note := ""
	if hit {
		note = " (cached)"
	}
	if !installed {
		trace.Point(s.tracer, trace.ScopeIndex, "superseded", filepath.Base(path))
		s.debugf("highlight %s%s: superseded, index kept: %s", filepath.Base(path), note, timer.Line())
		return data, nil
	}
	faces, gotos, docs := idx.Size()
	trace.Point(s.tracer, trace.ScopeIndex, "install",
		fmt.Sprintf("%s faces=%d gotos=%d docs=%d", filepath.Base(path), faces, gotos, docs))
	s.debugf("highlight %s%s: %s", filepath.Base(path), note, timer.Line())
	return data, nil
}

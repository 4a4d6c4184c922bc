package msl

import "fmt"

// structInfo tracks how a struct is used across function signatures.
// A struct used both as a parameter and as a return type splits into
// distinct _In and _Out MSL types.
type structInfo struct {
	st     *Struct
	input  bool
	output bool
}

func (si *structInfo) split() bool { return si.input && si.output }

// funcInfo carries the per-function analysis results: whether the body
// reads any block uniform, and which textures and samplers it touches,
// directly or through callees.
type funcInfo struct {
	fn               *Function
	requiresUniforms bool
	textures         map[string]bool
	samplers         map[string]bool
}

// transpiler holds the analyzed shader between the analysis and emission
// stages.
type transpiler struct {
	in *Shader

	// blockUniforms are the non-texture uniforms, declaration order.
	blockUniforms []*Uniform

	// textureUniforms are the texture-class uniforms, declaration order.
	textureUniforms []*Uniform

	uniformByName map[string]*Uniform
	textureByName map[string]*Uniform
	samplerByName map[string]*Sampler

	structByName map[string]*structInfo
	structList   []*structInfo

	funcByName map[string]*funcInfo
	funcList   []*funcInfo
	main       *funcInfo

	// offsets and blockSize come out of the uniform layout pass.
	offsets   map[string]int
	blockSize int
}

// analyze runs uniform classification, struct usage marking and the
// function-body walk, in that order.
func analyze(in *Shader) (*transpiler, error) {
	tr := &transpiler{
		in:            in,
		uniformByName: make(map[string]*Uniform),
		textureByName: make(map[string]*Uniform),
		samplerByName: make(map[string]*Sampler),
		structByName:  make(map[string]*structInfo),
		funcByName:    make(map[string]*funcInfo),
		offsets:       make(map[string]int),
	}

	tr.classifyUniforms()
	tr.markStructUsage()
	if err := tr.walkFunctionBodies(); err != nil {
		return nil, err
	}
	if tr.main == nil {
		return nil, ErrNoMain
	}
	tr.layoutUniforms()
	return tr, nil
}

// classifyUniforms assigns each uniform its storage class. Texture-typed
// uniforms of a fragment shader bind as texture arguments; everything
// else packs into the uniform block. Texture-typed uniforms of a vertex
// shader are unsupported by the host and are dropped from both classes.
func (tr *transpiler) classifyUniforms() {
	for _, u := range tr.in.Uniforms {
		if paramTypeFor(u.Type) == ParamTexture {
			if tr.in.Kind == FragmentShader {
				tr.textureUniforms = append(tr.textureUniforms, u)
				tr.textureByName[u.Name] = u
			}
			continue
		}
		tr.blockUniforms = append(tr.blockUniforms, u)
		tr.uniformByName[u.Name] = u
	}
	for _, s := range tr.in.Samplers {
		tr.samplerByName[s.Name] = s
	}
}

// markStructUsage flags each struct as input-used when it appears as a
// parameter type and output-used when it appears as a return type.
func (tr *transpiler) markStructUsage() {
	for _, st := range tr.in.Structs {
		si := &structInfo{st: st}
		tr.structByName[st.Name] = si
		tr.structList = append(tr.structList, si)
	}
	for _, fn := range tr.in.Functions {
		for _, p := range fn.Params {
			if si, ok := tr.structByName[p.Type]; ok {
				si.input = true
			}
		}
		if si, ok := tr.structByName[fn.ReturnType]; ok {
			si.output = true
		}
	}
}

// walkFunctionBodies scans each body for uniform, texture, sampler and
// callee references. Functions are declared before use, so a callee's
// results are final when its callers are walked.
func (tr *transpiler) walkFunctionBodies() error {
	for _, fn := range tr.in.Functions {
		fi := &funcInfo{
			fn:       fn,
			textures: make(map[string]bool),
			samplers: make(map[string]bool),
		}

		prev := ""
		for _, tok := range fn.Body {
			switch tok.Kind {
			case TokenSpacetab, TokenNewline, TokenNone:
				continue
			case TokenOther:
				prev = tok.Text
				continue
			}

			name := tok.Text
			if prev == "." {
				prev = name
				continue
			}
			prev = name

			if _, ok := tr.uniformByName[name]; ok {
				fi.requiresUniforms = true
				continue
			}
			if callee, ok := tr.funcByName[name]; ok {
				fi.requiresUniforms = fi.requiresUniforms || callee.requiresUniforms
				for t := range callee.textures {
					fi.textures[t] = true
				}
				for s := range callee.samplers {
					fi.samplers[s] = true
				}
				continue
			}
			if tr.in.Kind == FragmentShader {
				if _, ok := tr.textureByName[name]; ok {
					fi.textures[name] = true
					continue
				}
				if _, ok := tr.samplerByName[name]; ok {
					fi.samplers[name] = true
				}
			}
		}

		if _, dup := tr.funcByName[fn.Name]; dup {
			return fmt.Errorf("msl: duplicate function %q", fn.Name)
		}
		tr.funcByName[fn.Name] = fi
		tr.funcList = append(tr.funcList, fi)
		if fn.Name == "main" {
			tr.main = fi
		}
	}
	return nil
}

// layoutUniforms computes each block uniform's byte offset. A member that
// would straddle a 16-byte boundary is pushed to the next one, and the
// total is rounded up so the block tiles cleanly.
func (tr *transpiler) layoutUniforms() {
	size := 0
	for _, u := range tr.blockUniforms {
		elem := paramTypeFor(u.Type).Size()
		total := elem
		if u.ArrayCount > 0 {
			total = elem * u.ArrayCount
		}
		if size%16 != 0 && size%16+total > 16 {
			size += 16 - size%16
		}
		tr.offsets[u.Name] = size
		size += total
	}
	if size%16 != 0 {
		size += 16 - size%16
	}
	tr.blockSize = size
}

// extraArgs returns the names appended to a call of fi, in the fixed
// order the emitted signature declares them: the uniform block first,
// then textures and samplers in declaration order filtered to the ones
// fi uses.
func (tr *transpiler) extraArgs(fi *funcInfo) []string {
	var args []string
	if fi.requiresUniforms && len(tr.blockUniforms) > 0 {
		args = append(args, "uniforms")
	}
	for _, t := range tr.textureUniforms {
		if fi.textures[t.Name] {
			args = append(args, t.Name)
		}
	}
	for _, s := range tr.in.Samplers {
		if fi.samplers[s.Name] {
			args = append(args, s.Name)
		}
	}
	return args
}

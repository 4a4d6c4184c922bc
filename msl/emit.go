package msl

import (
	"fmt"
	"strings"
)

// uniformBufferIndex is the Metal buffer slot the uniform block binds to,
// clear of the vertex stream slots which count up from 0.
const uniformBufferIndex = 30

// writer generates the MSL translation of an analyzed shader.
type writer struct {
	tr  *transpiler
	out strings.Builder
}

func newWriter(tr *transpiler) *writer { return &writer{tr: tr} }

//nolint:goprintffuncname
func (w *writer) writeLine(format string, args ...any) {
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// emit writes the full translation unit: header, uniform block, structs,
// then functions in declaration order.
func (w *writer) emit() (string, error) {
	w.writeLine("#include <metal_stdlib>")
	w.writeLine("")
	w.writeLine("using namespace metal;")
	w.writeLine("")

	if err := w.writeUniformBlock(); err != nil {
		return "", err
	}
	if err := w.writeStructs(); err != nil {
		return "", err
	}
	for _, fi := range w.tr.funcList {
		if err := w.writeFunction(fi); err != nil {
			return "", err
		}
	}
	return w.out.String(), nil
}

func (w *writer) writeUniformBlock() error {
	if len(w.tr.blockUniforms) == 0 {
		return nil
	}
	w.writeLine("struct UniformData {")
	for _, u := range w.tr.blockUniforms {
		ct, err := convertTypeName(u.Type)
		if err != nil {
			return fmt.Errorf("uniform %s: %w", u.Name, err)
		}
		if u.ArrayCount > 0 {
			w.writeLine("    %s %s[%d];", ct, u.Name, u.ArrayCount)
		} else {
			w.writeLine("    %s %s;", ct, u.Name)
		}
	}
	w.writeLine("};")
	w.writeLine("")
	return nil
}

func (w *writer) writeStructs() error {
	for _, si := range w.tr.structList {
		switch {
		case si.split():
			if err := w.writeStruct(si.st, si.st.Name+"_In", true); err != nil {
				return err
			}
			if err := w.writeStruct(si.st, si.st.Name+"_Out", false); err != nil {
				return err
			}
		case si.input:
			if err := w.writeStruct(si.st, si.st.Name, true); err != nil {
				return err
			}
		default:
			// Output-only and unreferenced structs both carry their
			// semantic attributes.
			if err := w.writeStruct(si.st, si.st.Name, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeStruct emits one struct copy. Input variants of a vertex shader
// index fields positionally with [[attribute(i)]]; every other variant
// translates each field's semantic mapping.
func (w *writer) writeStruct(st *Struct, name string, input bool) error {
	w.writeLine("struct %s {", name)
	for i, f := range st.Fields {
		ct, err := convertTypeName(f.Type)
		if err != nil {
			return fmt.Errorf("struct %s field %s: %w", st.Name, f.Name, err)
		}
		attr := ""
		if input && w.tr.in.Kind == VertexShader {
			attr = fmt.Sprintf("attribute(%d)", i)
		} else {
			attr = attributeForMapping(f.Mapping)
		}
		if attr != "" {
			w.writeLine("    %s %s [[%s]];", ct, f.Name, attr)
		} else {
			w.writeLine("    %s %s;", ct, f.Name)
		}
	}
	w.writeLine("};")
	w.writeLine("")
	return nil
}

func (w *writer) writeFunction(fi *funcInfo) error {
	sig, rewriteReturns, err := w.signature(fi)
	if err != nil {
		return err
	}
	body, err := w.tr.rewriteBody(fi, fi.fn.Body, rewriteReturns)
	if err != nil {
		return fmt.Errorf("function %s: %w", fi.fn.Name, err)
	}
	body = strings.TrimPrefix(body, "\n")
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	w.writeLine("%s", sig)
	w.writeLine("{")
	w.out.WriteString(body)
	w.writeLine("}")
	w.writeLine("")
	return nil
}

// signature builds the MSL function signature. The second result reports
// whether the body's return statements need the float3-to-float4 rewrite.
func (w *writer) signature(fi *funcInfo) (string, bool, error) {
	tr := w.tr
	fn := fi.fn
	isMain := fn.Name == "main"

	ret := fn.ReturnType
	rewriteReturns := false
	if si, ok := tr.structByName[ret]; ok {
		if si.split() {
			ret += "_Out"
		}
	} else {
		var err error
		ret, err = convertTypeName(ret)
		if err != nil {
			return "", false, fmt.Errorf("function %s: %w", fn.Name, err)
		}
		// Metal has no 3-component color attachments.
		if isMain && tr.in.Kind == FragmentShader && ret == "float3" {
			ret = "float4"
			rewriteReturns = true
		}
	}

	var params []string
	for idx, p := range fn.Params {
		var decl string
		if si, ok := tr.structByName[p.Type]; ok {
			tname := p.Type
			if si.split() {
				tname += "_In"
			}
			decl = tname + " " + p.Name
		} else {
			ct, err := convertTypeName(p.Type)
			if err != nil {
				return "", false, fmt.Errorf("function %s parameter %s: %w", fn.Name, p.Name, err)
			}
			decl = ct + " " + p.Name
		}
		if isMain {
			switch {
			case p.Mapping != "":
				decl += " [[" + attributeForMapping(p.Mapping) + "]]"
			case idx == 0:
				decl += " [[stage_in]]"
			}
		}
		params = append(params, decl)
	}

	if len(tr.blockUniforms) > 0 {
		switch {
		case isMain:
			params = append(params, fmt.Sprintf("constant UniformData &uniforms [[buffer(%d)]]", uniformBufferIndex))
		case fi.requiresUniforms:
			params = append(params, "constant UniformData &uniforms")
		}
	}

	if tr.in.Kind == FragmentShader {
		if isMain {
			for slot, u := range tr.textureUniforms {
				ct, err := convertTypeName(u.Type)
				if err != nil {
					return "", false, fmt.Errorf("texture %s: %w", u.Name, err)
				}
				params = append(params, fmt.Sprintf("%s %s [[texture(%d)]]", ct, u.Name, slot))
			}
			for slot, s := range tr.in.Samplers {
				params = append(params, fmt.Sprintf("sampler %s [[sampler(%d)]]", s.Name, slot))
			}
		} else {
			for _, u := range tr.textureUniforms {
				if !fi.textures[u.Name] {
					continue
				}
				ct, err := convertTypeName(u.Type)
				if err != nil {
					return "", false, fmt.Errorf("texture %s: %w", u.Name, err)
				}
				params = append(params, ct+" "+u.Name)
			}
			for _, s := range tr.in.Samplers {
				if fi.samplers[s.Name] {
					params = append(params, "sampler "+s.Name)
				}
			}
		}
	}

	name := fn.Name
	prefix := ""
	if isMain {
		name = "_main"
		if tr.in.Kind == FragmentShader {
			prefix = "fragment "
		} else {
			prefix = "vertex "
		}
	}
	return fmt.Sprintf("%s%s %s(%s)", prefix, ret, name, strings.Join(params, ", ")), rewriteReturns, nil
}

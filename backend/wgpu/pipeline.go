package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shaderlive/internal/wgslc"
)

// uniformAlignment is the size granularity of uniform buffers.
const uniformAlignment = 16

type bindingKey struct {
	group, binding uint32
}

// program holds the GPU objects of a linked program.
type program struct {
	label        string
	linked       *wgslc.Linked
	buffers      map[bindingKey]hal.Buffer
	groupLayouts []hal.BindGroupLayout
	bindGroups   []hal.BindGroup
	layout       hal.PipelineLayout
	pipeline     hal.RenderPipeline
}

// buildProgram creates everything a program needs. On error every object
// created so far is destroyed.
func (b *Backend) buildProgram(label string, vs, fs *shader, linked *wgslc.Linked) (_ *program, err error) {
	p := &program{
		label:   label,
		linked:  linked,
		buffers: make(map[bindingKey]hal.Buffer, len(linked.Uniforms)),
	}
	defer func() {
		if err != nil {
			b.release(p)
		}
	}()

	if err := b.createUniformBuffers(p); err != nil {
		return nil, err
	}
	if err := b.createBindGroups(p); err != nil {
		return nil, err
	}

	p.layout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: p.groupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	p.pipeline, err = b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: p.layout,
		Vertex: hal.VertexState{
			Module:     vs.module,
			EntryPoint: linked.VertexEntry,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     fs.module,
			EntryPoint: linked.FragmentEntry,
			Targets:    b.colorTargets(fs.compiled, linked.FragmentEntry),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create render pipeline: %w", err)
	}
	return p, nil
}

// createUniformBuffers creates one buffer per uniform binding.
func (b *Backend) createUniformBuffers(p *program) error {
	for _, u := range p.linked.Uniforms {
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: p.label + "_" + u.Name,
			Size:  alignUp(uint64(u.Size), uniformAlignment),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("failed to create uniform buffer %q: %w", u.Name, err)
		}
		p.buffers[bindingKey{u.Group, u.Binding}] = buf
	}
	return nil
}

// createBindGroups creates a layout and a bind group for every group up to
// the highest one used. Unused groups get empty layouts.
func (b *Backend) createBindGroups(p *program) error {
	groups := 0
	for _, u := range p.linked.Uniforms {
		if int(u.Group)+1 > groups {
			groups = int(u.Group) + 1
		}
	}

	for g := 0; g < groups; g++ {
		var (
			layoutEntries []gputypes.BindGroupLayoutEntry
			groupEntries  []gputypes.BindGroupEntry
		)
		for _, u := range p.linked.Uniforms {
			if int(u.Group) != g {
				continue
			}
			layoutEntries = append(layoutEntries, gputypes.BindGroupLayoutEntry{
				Binding:    u.Binding,
				Visibility: gputypes.ShaderStagesVertexFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: uint64(u.Size),
				},
			})
			groupEntries = append(groupEntries, gputypes.BindGroupEntry{
				Binding: u.Binding,
				Resource: gputypes.BufferBinding{
					Buffer: p.buffers[bindingKey{u.Group, u.Binding}].NativeHandle(),
					Size:   uint64(u.Size),
				},
			})
		}

		layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group%d_layout", p.label, g),
			Entries: layoutEntries,
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group layout %d: %w", g, err)
		}
		p.groupLayouts = append(p.groupLayouts, layout)

		group, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s_group%d", p.label, g),
			Layout:  layout,
			Entries: groupEntries,
		})
		if err != nil {
			return fmt.Errorf("failed to create bind group %d: %w", g, err)
		}
		p.bindGroups = append(p.bindGroups, group)
	}
	return nil
}

// colorTargets returns one target per fragment output location.
func (b *Backend) colorTargets(fs *wgslc.Module, entry string) []gputypes.ColorTargetState {
	outputs := fs.Outputs(entry)
	n := 1
	for _, o := range outputs {
		if int(o.Location)+1 > n {
			n = int(o.Location) + 1
		}
	}
	targets := make([]gputypes.ColorTargetState, n)
	for i := range targets {
		targets[i] = gputypes.ColorTargetState{
			Format:    b.format,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	return targets
}

// release destroys the GPU objects of a program in reverse creation order.
func (b *Backend) release(p *program) {
	if p.pipeline != nil {
		b.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		b.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	for i := len(p.bindGroups) - 1; i >= 0; i-- {
		b.device.DestroyBindGroup(p.bindGroups[i])
	}
	p.bindGroups = nil
	for i := len(p.groupLayouts) - 1; i >= 0; i-- {
		b.device.DestroyBindGroupLayout(p.groupLayouts[i])
	}
	p.groupLayouts = nil
	for k, buf := range p.buffers {
		b.device.DestroyBuffer(buf)
		delete(p.buffers, k)
	}
}

func alignUp(n, align uint64) uint64 {
	if n == 0 {
		return align
	}
	return (n + align - 1) / align * align
}

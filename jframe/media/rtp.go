package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/TheusHen/jframe/jframe/frame"
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

var ErrUnknownCodec = errors.New("media: unknown codec")

// DefaultMTU leaves room for IP, UDP and SRTP overhead.
const DefaultMTU = 1200

// Codec is the RTP payload format of a stream.
type Codec uint8

const (
	CodecOpus Codec = iota + 1
	CodecVP8
)

func (c Codec) String() string {
	switch c {
	case CodecOpus:
		return "opus"
	case CodecVP8:
		return "vp8"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

func (c Codec) payloader() (rtp.Payloader, error) {
	switch c {
	case CodecOpus:
		return &codecs.OpusPayloader{}, nil
	case CodecVP8:
		return &codecs.VP8Payloader{}, nil
	default:
		return nil, ErrUnknownCodec
	}
}

// Packetizer splits frames into RTP packets. The frame timestamp and SSRC
// are carried unchanged and the last packet of a frame has the marker bit.
type Packetizer struct {
	payloadType uint8
	mtu         uint16
	payloader   rtp.Payloader
	sequencer   rtp.Sequencer
}

func NewPacketizer(codec Codec, payloadType uint8, mtu uint16) (*Packetizer, error) {
	payloader, err := codec.payloader()
	if err != nil {
		return nil, err
	}
	if mtu == 0 {
		mtu = DefaultMTU
	}
	return &Packetizer{
		payloadType: payloadType,
		mtu:         mtu,
		payloader:   payloader,
		sequencer:   rtp.NewRandomSequencer(),
	}, nil
}

func (p *Packetizer) Packetize(f *frame.Frame) []*rtp.Packet {
	payloads := p.payloader.Payload(p.mtu-12, f.Data)
	packets := make([]*rtp.Packet, len(payloads))
	for i, payload := range payloads {
		packets[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      f.Timestamp,
				SSRC:           f.SSRC,
			},
			Payload: payload,
		}
	}
	return packets
}

// Depacketizer reassembles frames from RTP packets. Opus packets are one
// frame each; VP8 frames end at the marker bit. A VP8 frame is a key frame
// when the P bit of its first partition is clear.
type Depacketizer struct {
	codec Codec

	pending *frame.Frame
}

func NewDepacketizer(codec Codec) (*Depacketizer, error) {
	if _, err := codec.payloader(); err != nil {
		return nil, err
	}
	return &Depacketizer{codec: codec}, nil
}

// Push consumes one packet and returns a frame once one is complete.
func (d *Depacketizer) Push(pkt *rtp.Packet) (*frame.Frame, error) {
	switch d.codec {
	case CodecOpus:
		var op codecs.OpusPacket
		payload, err := op.Unmarshal(pkt.Payload)
		if err != nil {
			return nil, err
		}
		return &frame.Frame{
			Kind:      frame.KindAudio,
			SSRC:      pkt.SSRC,
			Timestamp: pkt.Timestamp,
			Data:      append([]byte(nil), payload...),
		}, nil

	case CodecVP8:
		var vp codecs.VP8Packet
		payload, err := vp.Unmarshal(pkt.Payload)
		if err != nil {
			return nil, err
		}
		start := vp.S == 1 && vp.PID == 0
		if start || (d.pending != nil && (d.pending.Timestamp != pkt.Timestamp || d.pending.SSRC != pkt.SSRC)) {
			d.pending = nil
		}
		if start {
			kind := frame.KindDelta
			if len(payload) > 0 && payload[0]&0x01 == 0 {
				kind = frame.KindKey
			}
			d.pending = &frame.Frame{Kind: kind, SSRC: pkt.SSRC, Timestamp: pkt.Timestamp}
		}
		if d.pending == nil {
			// continuation of a frame whose start was lost
			return nil, nil
		}
		d.pending.Data = append(d.pending.Data, payload...)
		if !pkt.Marker {
			return nil, nil
		}
		f := d.pending
		d.pending = nil
		return f, nil

	default:
		return nil, ErrUnknownCodec
	}
}

// PacketSource supplies RTP packets, for example from a UDP socket.
type PacketSource interface {
	ReadRTP(ctx context.Context) (*rtp.Packet, error)
}

// PacketSink consumes RTP packets.
type PacketSink interface {
	WriteRTP(ctx context.Context, pkt *rtp.Packet) error
}

// RTPReader adapts a PacketSource to frame.Reader.
type RTPReader struct {
	src PacketSource
	dep *Depacketizer
}

func NewRTPReader(src PacketSource, codec Codec) (*RTPReader, error) {
	dep, err := NewDepacketizer(codec)
	if err != nil {
		return nil, err
	}
	return &RTPReader{src: src, dep: dep}, nil
}

func (r *RTPReader) ReadFrame(ctx context.Context) (*frame.Frame, error) {
	for {
		pkt, err := r.src.ReadRTP(ctx)
		if err != nil {
			return nil, err
		}
		f, err := r.dep.Push(pkt)
		if err != nil {
			continue
		}
		if f != nil {
			return f, nil
		}
	}
}

// RTPWriter adapts a PacketSink to frame.Writer.
type RTPWriter struct {
	dst PacketSink
	pkt *Packetizer
}

func NewRTPWriter(dst PacketSink, codec Codec, payloadType uint8) (*RTPWriter, error) {
	p, err := NewPacketizer(codec, payloadType, DefaultMTU)
	if err != nil {
		return nil, err
	}
	return &RTPWriter{dst: dst, pkt: p}, nil
}

func (w *RTPWriter) WriteFrame(ctx context.Context, f *frame.Frame) error {
	for _, pkt := range w.pkt.Packetize(f) {
		if err := w.dst.WriteRTP(ctx, pkt); err != nil {
			return err
		}
	}
	return nil
}

// PacketChan is a channel-backed PacketSource and PacketSink.
type PacketChan chan *rtp.Packet

func (c PacketChan) ReadRTP(ctx context.Context) (*rtp.Packet, error) {
	select {
	case pkt, ok := <-c:
		if !ok {
			return nil, io.EOF
		}
		return pkt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c PacketChan) WriteRTP(ctx context.Context, pkt *rtp.Packet) error {
	select {
	case c <- pkt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

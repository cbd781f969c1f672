package h2

import "bufio"

// drainStream is the per-stream sender loop: the
// outbound buffer is emitted in chunks of min(max_frame_size,
// stream_send_window, conn_send_window), debiting both windows, with
// END_STREAM set only on the final chunk. It stops, without error,
// once the buffer is drained or the available window reaches zero —
// the caller is expected to retry from pendingWrites once a
// WINDOW_UPDATE arrives.
func drainStream(bw *bufio.Writer, maxFrameSize uint32, conn *connFlow, s *Stream) error {
	for s.OutboundPending() {
		n := sendChunkSize(maxFrameSize, s.SendWindow(), conn.sendWindow)
		if n == 0 && len(s.outboundBuffer) > 0 {
			// window exhausted mid-buffer: flush what was already
			// framed so the peer sees it and can grant more window.
			return bw.Flush()
		}

		chunk, final := s.NextChunk(n)
		endStream := final && s.OutboundEndStream()

		d := acquireData()
		d.SetData(chunk)
		d.SetEndStream(endStream)

		fh := AcquireFrameHeader()
		fh.SetStream(s.ID())
		fh.SetBody(d)

		if _, err := fh.WriteTo(bw); err != nil {
			ReleaseFrameHeader(fh)
			return err
		}
		ReleaseFrameHeader(fh)

		s.DebitSendWindow(int32(len(chunk)))
		conn.DebitSend(int32(len(chunk)))

		if endStream {
			s.SetSentEndStream(true)
			s.transitionSend(FrameData, true)
		}
	}

	return bw.Flush()
}

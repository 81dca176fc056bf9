// Package transport owns the TCP session to one telemetry source.
//
// A session follows a fixed sequence: dial, send the credential, sleep the
// settle delay, drain whatever the source sent before it was asked, then
// alternate RequestMore and Receive. Every failure is returned as a transient
// classified error; the caller closes the session and calls Connect again.
//
//	s, err := transport.NewSession(transport.DefaultConfig("95.163.237.76:5123"))
//	if err != nil {
//	    return err
//	}
//	if err := s.Connect(ctx); err != nil {
//	    return err // errors.IsTransient(err) == true
//	}
//	defer s.Close()
//
//	buf := make([]byte, 4096)
//	for {
//	    if err := s.RequestMore(); err != nil {
//	        return err
//	    }
//	    n, err := s.Receive(buf)
//	    if err != nil {
//	        return err
//	    }
//	    handle(buf[:n])
//	}
//
// Receive returns whatever is available from a single read; it does not wait
// for a full record.
package transport

package fins

import "context"

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// NopClient implements FINSClient with no-op behavior.
// Useful for tests or placeholders where a real PLC is not reachable.
// Operations return SID 0 and no event is ever emitted.
type NopClient struct{}

func (NopClient) On(EventType, Handler)      {}
func (NopClient) Done() <-chan struct{}      { return closedChan }
func (NopClient) SetInterceptor(Interceptor) {}
func (NopClient) Use(...Plugin) error        { return nil }
func (NopClient) Open() error                { return nil }
func (NopClient) IsClosed() bool             { return false }
func (NopClient) Close() error               { return nil }
func (NopClient) Read(context.Context, string, uint16) (byte, error) {
	return 0, nil
}
func (NopClient) ReadMultiple(context.Context, ...string) (byte, error) {
	return 0, nil
}
func (NopClient) Status(context.Context) (byte, error) { return 0, nil }
func (NopClient) Write(context.Context, string, ...uint16) (byte, error) {
	return 0, nil
}
func (NopClient) Fill(context.Context, string, uint16, uint16) (byte, error) {
	return 0, nil
}
func (NopClient) Transfer(context.Context, string, string, uint16) (byte, error) {
	return 0, nil
}
func (NopClient) Run(context.Context) (byte, error)  { return 0, nil }
func (NopClient) Stop(context.Context) (byte, error) { return 0, nil }

var _ FINSClient = NopClient{}

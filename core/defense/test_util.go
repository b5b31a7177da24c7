package defense

import (
	"context"

	"github.com/trezcool/utetezi/core"
	"github.com/trezcool/utetezi/core/group"
)

type serviceMock struct {
	service
}

var _ Service = (*serviceMock)(nil)

// NewServiceMock returns a Service that runs without a transaction and sends
// mails synchronously.
func NewServiceMock(repo Repository, groupRepo group.Repository, mailSvc core.EmailService, policy core.AccessPolicy) Service {
	return &serviceMock{
		service: service{
			repo:      repo,
			groupRepo: groupRepo,
			mailSvc:   mailSvc,
			policy:    policy,
		},
	}
}

func (svc *serviceMock) Create(ctx context.Context, principal core.Principal, nd NewDefense) (Defense, error) {
	def, lecturers, err := svc.create(ctx, principal, nd)
	if err != nil {
		return Defense{}, err
	}
	svc.sendDefenseScheduledMail(def, lecturers)
	return svc.GetByID(ctx, def.ID)
}

package clickhouse

import (
	"github.com/golang/mock/gomock"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
)

const (
	alice = "0x8db97c7cece249c2b98bdc0226cc4c2a57bf52fc"
	bob   = "0xb31f66aa3c1e785363f0875a1b74e27b85fd66c7"
	carol = "0x00000000219ab540356cbb839cbe05303d7705fa"
)

func (s *RepositorySuite) seed() []model.Transaction {
	txs := []model.Transaction{
		newTransaction(101, 1, alice, bob, "5"),
		newTransaction(100, 0, bob, alice, "115792089237316195423570985008687907853269984665640564039457584007913129639935"),
		newTransaction(100, 2, alice, "", "0"),
		newTransaction(102, 0, bob, carol, "9"),
	}
	s.metrics.EXPECT().Observe("insert_transactions", gomock.Nil(), gomock.Any()).Times(1)
	s.Require().NoError(s.repo.InsertTransactions(s.testCtx, txs))
	return txs
}

func (s *RepositorySuite) TestInsertTransactions() {
	txs := s.seed()
	s.Equal(uint64(len(txs)), s.countRows(model.TransactionsTable))
}

func (s *RepositorySuite) TestInsertTransactions_DuplicatesCollapse() {
	txs := s.seed()

	s.metrics.EXPECT().Observe("insert_transactions", gomock.Nil(), gomock.Any()).Times(1)
	s.Require().NoError(s.repo.InsertTransactions(s.testCtx, txs[:2]))

	s.Equal(uint64(len(txs)), s.countRows(model.TransactionsTable))
}

func (s *RepositorySuite) TestTransactionsByAddress_BlockPosition() {
	s.seed()
	s.metrics.EXPECT().Observe("transactions_by_address", gomock.Nil(), gomock.Any()).Times(2)

	page, err := s.repo.TransactionsByAddress(s.testCtx, alice, model.OrderBlockPosition, 2, 0)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("100", page[0].BlockNumber)
	s.Equal("0", page[0].TxIndex)
	s.Equal("115792089237316195423570985008687907853269984665640564039457584007913129639935", page[0].Value)
	s.Equal("2", page[1].TxIndex)
	s.Equal("", page[1].ToAddress)
	s.NoError(page[0].Validate())

	next, err := s.repo.TransactionsByAddress(s.testCtx, alice, model.OrderBlockPosition, 2, 2)
	s.Require().NoError(err)
	s.Require().Len(next, 1)
	s.Equal("101", next[0].BlockNumber)
}

func (s *RepositorySuite) TestTransactionsByAddress_ValueDesc() {
	s.seed()
	s.metrics.EXPECT().Observe("transactions_by_address", gomock.Nil(), gomock.Any()).Times(1)

	page, err := s.repo.TransactionsByAddress(s.testCtx, bob, model.OrderValueDesc, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(page, 3)
	s.Equal("115792089237316195423570985008687907853269984665640564039457584007913129639935", page[0].Value)
	s.Equal("9", page[1].Value)
	s.Equal("5", page[2].Value)
}

func (s *RepositorySuite) TestTransactionValueTotalAndCount() {
	s.seed()
	s.metrics.EXPECT().Observe("transaction_value_total", gomock.Nil(), gomock.Any()).Times(2)
	s.metrics.EXPECT().Observe("count_transactions", gomock.Nil(), gomock.Any()).Times(2)

	total, err := s.repo.TransactionValueTotal(s.testCtx, carol)
	s.Require().NoError(err)
	s.Equal("9", total)

	empty, err := s.repo.TransactionValueTotal(s.testCtx, "0x0000000000000000000000000000000000000001")
	s.Require().NoError(err)
	s.Equal("0", empty)

	count, err := s.repo.CountTransactions(s.testCtx, alice)
	s.Require().NoError(err)
	s.Equal(uint64(3), count)

	none, err := s.repo.CountTransactions(s.testCtx, "0x0000000000000000000000000000000000000001")
	s.Require().NoError(err)
	s.Equal(uint64(0), none)
}
